// Package route classifies broker messages into display events.
//
// A Table is an ordered list of routes built once at startup. Classify walks
// the routes in order and the first matching topic wins, so a table should
// list its more specific topics first.
//
// In MatchPrefix mode a route matches when the inbound topic equals the
// registered topic or is a prefix of it: the comparison only spans the
// inbound topic's length. "office/temp" therefore matches a registered
// "office/temperature". MatchExact only accepts identical topics.
package route

import (
	"fmt"
	"strings"

	"github.com/jypelle/homeboard/internal/srv/event"
	"github.com/sirupsen/logrus"
)

type MatchMode int

const (
	MatchPrefix MatchMode = iota
	MatchExact
)

func (m MatchMode) String() string {
	if m == MatchExact {
		return "exact"
	}
	return "prefix"
}

func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "prefix":
		return MatchPrefix, nil
	case "exact":
		return MatchExact, nil
	default:
		return MatchPrefix, fmt.Errorf("unknown topic match mode %q (valid: prefix, exact)", s)
	}
}

type Route struct {
	Topic     string
	Kind      event.Kind
	Room      string
	Transform Transform
}

func (r Route) matches(topic string, mode MatchMode) bool {
	if mode == MatchExact {
		return r.Topic == topic
	}
	return strings.HasPrefix(r.Topic, topic)
}

type Table struct {
	routes []Route
	mode   MatchMode
}

// NewTable copies routes into a read-only table and warns about routes
// that an earlier route would always capture.
func NewTable(mode MatchMode, routes ...Route) *Table {
	t := &Table{
		routes: append([]Route(nil), routes...),
		mode:   mode,
	}
	for i, later := range t.routes {
		for _, earlier := range t.routes[:i] {
			if earlier.matches(later.Topic, mode) {
				logrus.Warnf("Route %q is shadowed by earlier route %q", later.Topic, earlier.Topic)
				break
			}
		}
	}
	return t
}

func (t *Table) Mode() MatchMode {
	return t.mode
}

// Routes returns a copy of the table in match order.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Topics returns each registered topic once, in table order.
func (t *Table) Topics() []string {
	seen := make(map[string]bool, len(t.routes))
	topics := make([]string, 0, len(t.routes))
	for _, r := range t.routes {
		if !seen[r.Topic] {
			seen[r.Topic] = true
			topics = append(topics, r.Topic)
		}
	}
	return topics
}

// Lookup returns the first route matching topic.
func (t *Table) Lookup(topic string) (Route, bool) {
	if topic == "" {
		return Route{}, false
	}
	for _, r := range t.routes {
		if r.matches(topic, t.mode) {
			return r, true
		}
	}
	return Route{}, false
}

// Classify turns a message into a display event. For an unknown topic it
// returns false together with a house event carrying the raw topic.
func (t *Table) Classify(topic, payload string) (event.DisplayEvent, bool) {
	r, ok := t.Lookup(topic)
	if !ok {
		return event.New(event.HOUSE_EVENT_KIND, topic), false
	}
	return r.Apply(payload), true
}
