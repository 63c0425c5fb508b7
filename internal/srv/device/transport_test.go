package device

import (
	"github.com/jypelle/homeboard/internal/srv/event"
	. "gopkg.in/check.v1"
)

type TransportSuite struct {
	transport *LocalTransport
}

var _ = Suite(&TransportSuite{})

func (s *TransportSuite) SetUpTest(c *C) {
	s.transport = NewLocalTransport("creatures/hallway", 2, 8)
}

func (s *TransportSuite) receive(c *C) event.InboundMessage {
	select {
	case msg := <-s.transport.Inbound():
		return msg
	default:
		c.Fatal("no inbound message")
	}
	return event.InboundMessage{}
}

func (s *TransportSuite) TestPublishNeedsStart(c *C) {
	c.Assert(s.transport.Publish("status", "x", 0, false), Equals, ErrNotConnected)

	c.Assert(s.transport.Start(), IsNil)
	c.Assert(s.transport.Published(), DeepEquals, []PublishedMessage{
		{Topic: "creatures/hallway/status", Payload: AlivePayload},
	})
}

func (s *TransportSuite) TestLocalAndGlobalNamespaces(c *C) {
	c.Assert(s.transport.Start(), IsNil)
	c.Assert(s.transport.Subscribe("config", 0), IsNil)
	c.Assert(s.transport.SubscribeGlobal("bedroom/motion", 0), IsNil)

	c.Assert(s.transport.Deliver("bedroom/motion", "on"), Equals, true)
	c.Assert(s.receive(c), DeepEquals, event.InboundMessage{
		Topic: "bedroom/motion", GlobalTopic: "bedroom/motion", Payload: "on",
	})

	c.Assert(s.transport.Deliver("creatures/hallway/config", "log_level: debug"), Equals, true)
	msg := s.receive(c)
	c.Assert(msg.Topic, Equals, "config")
	c.Assert(msg.GlobalTopic, Equals, "creatures/hallway/config")
	c.Assert(msg.Payload, Equals, "log_leve")

	c.Assert(s.transport.Deliver("kitchen/motion", "on"), Equals, false)
}

func (s *TransportSuite) TestPublishLoopsBackToSubscribers(c *C) {
	c.Assert(s.transport.Start(), IsNil)
	c.Assert(s.transport.Subscribe("config", 0), IsNil)
	c.Assert(s.transport.Publish("config", "x", 0, false), IsNil)
	c.Assert(s.receive(c).Topic, Equals, "config")
}

func (s *TransportSuite) TestFullInboundDrops(c *C) {
	c.Assert(s.transport.SubscribeGlobal("house/#", 0), IsNil)
	c.Assert(s.transport.Deliver("house/power", "1"), Equals, true)
	c.Assert(s.transport.Deliver("house/power", "2"), Equals, true)
	c.Assert(s.transport.Deliver("house/power", "3"), Equals, false)
	c.Assert(s.transport.Dropped(), Equals, int64(1))
	c.Assert(s.receive(c).Payload, Equals, "1")
}

func (s *TransportSuite) TestTopicMatches(c *C) {
	cases := []struct {
		filter, topic string
		match         bool
	}{
		{"bedroom/motion", "bedroom/motion", true},
		{"bedroom/motion", "bedroom/motion/raw", false},
		{"+/motion", "office/motion", true},
		{"+/motion", "office/temperature", false},
		{"house/#", "house/power/phase1", true},
		{"#", "anything/at/all", true},
		{"a/b/c", "a/b", false},
	}
	for _, tc := range cases {
		c.Assert(topicMatches(tc.filter, tc.topic), Equals, tc.match, Commentf("%s vs %s", tc.filter, tc.topic))
	}
}

func (s *TransportSuite) TestInboundMessageWithoutNamespace(c *C) {
	msg := newInboundMessage("", "config", []byte("show_unknown_topics: false"), 0)
	c.Assert(msg.Topic, Equals, "config")
	c.Assert(msg.Payload, Equals, "show_unknown_topics: false")

	msg = newInboundMessage("creatures/hallway", "creatures/hallwayx/config", []byte("x"), 0)
	c.Assert(msg.Topic, Equals, "creatures/hallwayx/config")
}

func (s *TransportSuite) TestClientId(c *C) {
	c.Assert(ClientId("hallway"), Equals, "homeboard-hallway")
	c.Assert(ClientId(""), Matches, "homeboard-[0-9a-f-]{36}")
}
