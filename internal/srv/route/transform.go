package route

import (
	"math"
	"strconv"
	"strings"

	"github.com/jypelle/homeboard/internal/srv/event"
)

const activeToken = "on"

type Transform int

const (
	// BINARY_TRANSFORM reads "on"/"off" sensor and actuator states.
	BINARY_TRANSFORM Transform = iota
	// NUMERIC_TRANSFORM reads a decimal reading.
	NUMERIC_TRANSFORM
	// TEXT_TRANSFORM shows the payload as is.
	TEXT_TRANSFORM
	// COUNT_TRANSFORM reads a leading integer and groups its digits.
	COUNT_TRANSFORM
)

// DefaultTransform is the transform a route of the given kind uses when the
// configuration does not say otherwise.
func DefaultTransform(kind event.Kind) Transform {
	switch kind {
	case event.HOUSE_EVENT_KIND, event.FLAMETHROWER_KIND:
		return BINARY_TRANSFORM
	case event.TEMPERATURE_KIND, event.WIND_KIND, event.POWER_KIND:
		return NUMERIC_TRANSFORM
	case event.COUNTER_KIND:
		return COUNT_TRANSFORM
	default:
		return TEXT_TRANSFORM
	}
}

// IsActive compares the first two bytes of payload with "on", which is
// enough to tell "on" from "off". "online" therefore counts as active.
func IsActive(payload string) bool {
	return len(payload) >= len(activeToken) && payload[:len(activeToken)] == activeToken
}

// ParseValue reads a decimal payload. Anything unparsable reads as 0.
func ParseValue(payload string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(payload), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ParseCount reads the decimal digits leading payload, after optional spaces
// and sign. Negative counts read as 0 and overflows saturate.
func ParseCount(payload string) uint64 {
	s := strings.TrimLeft(payload, " \t\n\r\v\f")
	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}
	var n uint64
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		d := uint64(s[i] - '0')
		if n > (math.MaxUint64-d)/10 {
			n = math.MaxUint64
			continue
		}
		n = n*10 + d
	}
	if negative {
		return 0
	}
	return n
}

// GroupDigits writes n with a comma every three digits: 1234567 gives
// "1,234,567".
func GroupDigits(n uint64) string {
	digits := strconv.FormatUint(n, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return b.String()
}

func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Apply builds the display event for payload received on this route.
func (r Route) Apply(payload string) event.DisplayEvent {
	switch r.Transform {
	case BINARY_TRANSFORM:
		active := IsActive(payload)
		return event.NewState(r.Kind, r.stateText(active), active)
	case NUMERIC_TRANSFORM:
		v := ParseValue(payload)
		return event.NewValue(r.Kind, r.valueText(v), v)
	case COUNT_TRANSFORM:
		n := ParseCount(payload)
		text := GroupDigits(n)
		if r.Room != "" {
			text = r.Room + ": " + text
		}
		return event.NewValue(r.Kind, text, float64(n))
	default:
		return event.New(r.Kind, payload)
	}
}

func (r Route) stateText(active bool) string {
	if r.Kind == event.FLAMETHROWER_KIND {
		if active {
			return r.Room + " Flamethrower On"
		}
		return r.Room + " Flamethrower Off"
	}
	if active {
		return r.Room + " Motion"
	}
	return r.Room + " Cleared"
}

func (r Route) valueText(v float64) string {
	value := FormatValue(v)
	switch r.Kind {
	case event.WIND_KIND:
		return "Wind: " + value + " mph"
	case event.POWER_KIND:
		return "Power: " + value + "W"
	default:
		if r.Room == "" {
			return value + "F"
		}
		return r.Room + ": " + value + "F"
	}
}
