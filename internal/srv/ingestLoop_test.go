package srv

import (
	"time"

	"github.com/jypelle/homeboard/internal/srv/config"
	"github.com/jypelle/homeboard/internal/srv/event"
	"github.com/jypelle/homeboard/internal/srv/queue"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	. "gopkg.in/check.v1"
)

type IngestLoopSuite struct {
	inbound  chan event.InboundMessage
	queue    *queue.DisplayQueue
	state    *config.ServerState
	loop     *IngestLoop
	payloads []string
}

var _ = Suite(&IngestLoopSuite{})

func (s *IngestLoopSuite) SetUpTest(c *C) {
	param, err := config.LoadServerParam(config.ParamDefaultFile)
	c.Assert(err, IsNil)
	table, err := param.Routes.Table()
	c.Assert(err, IsNil)

	s.inbound = make(chan event.InboundMessage, 4)
	s.queue = queue.NewDisplayQueue(queue.DefaultCapacity)
	s.state = config.NewServerState(true)
	s.payloads = nil
	s.loop = NewIngestLoop(s.inbound, table, s.queue, s.state, func(payload string) {
		s.payloads = append(s.payloads, payload)
	})
}

func (s *IngestLoopSuite) poll(c *C) event.DisplayEvent {
	ev, ok := s.queue.PollTimeout(time.Second)
	c.Assert(ok, Equals, true)
	return ev
}

func (s *IngestLoopSuite) TestMotion(c *C) {
	s.loop.Start()
	defer s.loop.Stop()

	s.inbound <- event.InboundMessage{Topic: "bedroom/motion", GlobalTopic: "bedroom/motion", Payload: "on"}
	ev := s.poll(c)
	c.Assert(ev.Kind(), Equals, event.HOUSE_EVENT_KIND)
	c.Assert(ev.Text().String(), Equals, "Bedroom Motion")
}

func (s *IngestLoopSuite) TestTemperature(c *C) {
	s.loop.Start()
	defer s.loop.Stop()

	c.Assert(s.loop.Inject("office/temperature", "72.3"), IsNil)
	ev := s.poll(c)
	c.Assert(ev.Kind(), Equals, event.TEMPERATURE_KIND)
	c.Assert(ev.Text().String(), Equals, "Office: 72.3F")
	c.Assert(ev.Value(), Equals, 72.3)
}

func (s *IngestLoopSuite) TestCounter(c *C) {
	s.loop.handle(event.InboundMessage{Topic: "sl/concurrency", GlobalTopic: "sl/concurrency", Payload: "48213"})
	ev := s.poll(c)
	c.Assert(ev.Kind(), Equals, event.COUNTER_KIND)
	c.Assert(ev.Text().String(), Equals, "48,213")
}

func (s *IngestLoopSuite) TestConfigTopicGoesToUpdater(c *C) {
	s.loop.handle(event.InboundMessage{Topic: config.ConfigTopic, GlobalTopic: "creatures/hallway/config", Payload: "display_on: true"})
	c.Assert(s.payloads, DeepEquals, []string{"display_on: true"})
	c.Assert(s.queue.Len(), Equals, 0)
}

func (s *IngestLoopSuite) TestUnknownTopic(c *C) {
	hook := test.NewGlobal()
	defer hook.Reset()

	s.loop.handle(event.InboundMessage{Topic: "garage/door", GlobalTopic: "garage/door", Payload: "open"})
	c.Assert(hook.LastEntry().Level, Equals, logrus.WarnLevel)
	c.Assert(hook.LastEntry().Message, Equals, `Unknown topic "garage/door"`)
	ev := s.poll(c)
	c.Assert(ev.Kind(), Equals, event.HOUSE_EVENT_KIND)
	c.Assert(ev.Text().String(), Equals, "garage/door")

	s.state.SetShowUnknownTopics(false)
	s.loop.handle(event.InboundMessage{Topic: "garage/door", GlobalTopic: "garage/door", Payload: "open"})
	c.Assert(s.queue.Len(), Equals, 0)
}

func (s *IngestLoopSuite) TestFullQueueDropsNewest(c *C) {
	hook := test.NewGlobal()
	defer hook.Reset()

	for i := 0; i < queue.DefaultCapacity; i++ {
		c.Assert(s.queue.Offer(event.New(event.WIND_KIND, "Wind: 1 mph")), Equals, true)
	}
	s.loop.handle(event.InboundMessage{Topic: "house/power", GlobalTopic: "house/power", Payload: "1500"})
	c.Assert(s.queue.Dropped(), Equals, int64(1))
	c.Assert(hook.LastEntry().Message, Equals, "Display queue full, power:Power: 1500W dropped")
}

func (s *IngestLoopSuite) TestSilentTransportKeepsLooping(c *C) {
	s.loop.ReceiveTimeout = 10 * time.Millisecond
	s.loop.Start()
	time.Sleep(50 * time.Millisecond)
	s.inbound <- event.InboundMessage{Topic: "outside/wind_speed", GlobalTopic: "outside/wind_speed", Payload: "12"}
	c.Assert(s.poll(c).Text().String(), Equals, "Wind: 12 mph")
	s.loop.Stop()
}

func (s *IngestLoopSuite) TestInjectWhenBusy(c *C) {
	for i := 0; i < ingestInjectBuffer; i++ {
		c.Assert(s.loop.Inject("house/power", "1"), IsNil)
	}
	c.Assert(s.loop.Inject("house/power", "1"), Equals, ErrIngestBusy)
}
