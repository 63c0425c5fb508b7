package event

import (
	"strconv"

	"github.com/jypelle/homeboard/apimodel"
)

// Display

type Kind int

const (
	CLOCK_KIND Kind = iota
	TEMPERATURE_KIND
	WIND_KIND
	POWER_KIND
	HOUSE_EVENT_KIND
	FLAMETHROWER_KIND
	SYSTEM_MESSAGE_KIND
	ERROR_KIND
	COUNTER_KIND
)

var kindNames = [...]string{
	CLOCK_KIND:          "clock",
	TEMPERATURE_KIND:    "temperature",
	WIND_KIND:           "wind",
	POWER_KIND:          "power",
	HOUSE_EVENT_KIND:    "house-event",
	FLAMETHROWER_KIND:   "flamethrower",
	SYSTEM_MESSAGE_KIND: "system-message",
	ERROR_KIND:          "error",
	COUNTER_KIND:        "counter",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// DisplayEvent is one update destined for one screen region.
// It is a plain value: copying it is how it travels through the display queue.
type DisplayEvent struct {
	kind   Kind
	text   Text
	value  float64
	active bool
}

func New(kind Kind, text string) DisplayEvent {
	return DisplayEvent{kind: kind, text: NewText(text)}
}

// NewValue builds an event for a numeric reading.
func NewValue(kind Kind, text string, value float64) DisplayEvent {
	return DisplayEvent{kind: kind, text: NewText(text), value: value}
}

// NewState builds an event for an on/off reading.
func NewState(kind Kind, text string, active bool) DisplayEvent {
	return DisplayEvent{kind: kind, text: NewText(text), active: active}
}

func (e DisplayEvent) Kind() Kind {
	return e.kind
}

func (e DisplayEvent) Text() Text {
	return e.text
}

func (e DisplayEvent) Value() float64 {
	return e.value
}

func (e DisplayEvent) Active() bool {
	return e.active
}

func (e DisplayEvent) String() string {
	return e.kind.String() + ":" + e.text.String()
}

// Transport

// InboundMessage is a message received from the broker. Topic is relative to
// the device namespace when the message arrived there, GlobalTopic is always
// the full topic.
type InboundMessage struct {
	Topic       string
	GlobalTopic string
	Payload     string
}

// Api
type ApiEvent struct {
	Result chan error
	Data   interface{}
}

type ApiEventPublishData struct {
	Topic   string
	Payload string
}

type ApiEventDisplayData struct {
	State string
}

type ApiEventRegionsData struct {
	Regions chan []apimodel.Region
}

type ApiEventStatusData struct {
	Status chan apimodel.Status
}
