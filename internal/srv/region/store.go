// Package region keeps the last rendered value of each screen region.
//
// A Store is not safe for concurrent use. It belongs to the render loop and
// every other component talks to it through display events.
package region

import (
	"time"

	"github.com/jypelle/homeboard/apimodel"
	"github.com/jypelle/homeboard/internal/srv/event"
)

type Name string

const (
	COUNTER              Name = "counter"
	CLOCK                Name = "clock"
	TEMPERATURE          Name = "temperature"
	WIND                 Name = "wind"
	POWER                Name = "power"
	HOUSE_MESSAGE        Name = "house-message"
	FLAMETHROWER_MESSAGE Name = "flamethrower-message"
	SYSTEM_MESSAGE       Name = "system-message"
	ERROR                Name = "error"
)

// Names lists every region in paint order.
var Names = []Name{
	COUNTER,
	TEMPERATURE,
	WIND,
	POWER,
	HOUSE_MESSAGE,
	FLAMETHROWER_MESSAGE,
	CLOCK,
	SYSTEM_MESSAGE,
	ERROR,
}

// ForKind returns the region an event kind is drawn into.
func ForKind(kind event.Kind) Name {
	switch kind {
	case event.COUNTER_KIND:
		return COUNTER
	case event.CLOCK_KIND:
		return CLOCK
	case event.TEMPERATURE_KIND:
		return TEMPERATURE
	case event.WIND_KIND:
		return WIND
	case event.POWER_KIND:
		return POWER
	case event.FLAMETHROWER_KIND:
		return FLAMETHROWER_MESSAGE
	case event.SYSTEM_MESSAGE_KIND:
		return SYSTEM_MESSAGE
	case event.ERROR_KIND:
		return ERROR
	default:
		return HOUSE_MESSAGE
	}
}

type Region struct {
	Name      Name
	Text      string
	Value     float64
	Dirty     bool
	Updates   int64
	UpdatedAt time.Time
}

type Store struct {
	regions map[Name]*Region
	now     func() time.Time
}

func NewStore() *Store {
	store := &Store{
		regions: make(map[Name]*Region, len(Names)),
		now:     time.Now,
	}
	for _, name := range Names {
		store.regions[name] = &Region{Name: name}
	}
	return store
}

// Apply writes ev into its region, marks it dirty and returns the region name.
func (s *Store) Apply(ev event.DisplayEvent) Name {
	name := ForKind(ev.Kind())
	r := s.regions[name]
	r.Text = ev.Text().String()
	r.Value = ev.Value()
	r.Dirty = true
	r.Updates++
	r.UpdatedAt = s.now()
	return name
}

func (s *Store) MarkClean(name Name) {
	if r, ok := s.regions[name]; ok {
		r.Dirty = false
	}
}

func (s *Store) Get(name Name) (Region, bool) {
	r, ok := s.regions[name]
	if !ok {
		return Region{}, false
	}
	return *r, true
}

// Dirty lists the regions waiting for a successful redraw.
func (s *Store) Dirty() []Name {
	var dirty []Name
	for _, name := range Names {
		if s.regions[name].Dirty {
			dirty = append(dirty, name)
		}
	}
	return dirty
}

// Snapshot copies every region, in Names order.
func (s *Store) Snapshot() []apimodel.Region {
	snapshot := make([]apimodel.Region, 0, len(Names))
	for _, name := range Names {
		r := s.regions[name]
		snapshot = append(snapshot, apimodel.Region{
			Name:      string(r.Name),
			Text:      r.Text,
			Value:     r.Value,
			Dirty:     r.Dirty,
			Updates:   r.Updates,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return snapshot
}
