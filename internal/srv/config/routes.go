package config

import (
	"github.com/jypelle/homeboard/internal/srv/event"
	"github.com/jypelle/homeboard/internal/srv/route"
)

// Table builds the topic route table: the counter first, then room motion
// topics, room temperatures, wind, power, flamethrowers and the message topics.
func (p RoutesParam) Table() (*route.Table, error) {
	mode, err := route.ParseMatchMode(p.Match)
	if err != nil {
		return nil, err
	}

	var routes []route.Route
	add := func(topic string, kind event.Kind, room string) {
		if topic == "" {
			return
		}
		routes = append(routes, route.Route{
			Topic:     topic,
			Kind:      kind,
			Room:      room,
			Transform: route.DefaultTransform(kind),
		})
	}

	add(p.CounterTopic, event.COUNTER_KIND, p.CounterLabel)
	for _, room := range p.Rooms {
		add(room.MotionTopic, event.HOUSE_EVENT_KIND, room.Name)
	}
	for _, room := range p.Rooms {
		add(room.TemperatureTopic, event.TEMPERATURE_KIND, room.TemperatureName())
	}
	add(p.WindTopic, event.WIND_KIND, "")
	add(p.PowerTopic, event.POWER_KIND, "")
	for _, f := range p.Flamethrowers {
		add(f.Topic, event.FLAMETHROWER_KIND, f.Room)
	}
	add(p.MessageTopic, event.SYSTEM_MESSAGE_KIND, "")
	add(p.ErrorTopic, event.ERROR_KIND, "")

	return route.NewTable(mode, routes...), nil
}
