package srv

import (
	"errors"
	"image"
	"time"

	"github.com/jypelle/homeboard/internal/srv/device"
	"github.com/jypelle/homeboard/internal/srv/event"
	"github.com/jypelle/homeboard/internal/srv/queue"
	"github.com/jypelle/homeboard/internal/srv/region"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	. "gopkg.in/check.v1"
)

type RenderLoopSuite struct {
	panel   *device.MemoryPanel
	display *device.Display
	queue   *queue.DisplayQueue
	loop    *RenderLoop
	layout  map[region.Name]image.Rectangle
}

var _ = Suite(&RenderLoopSuite{})

func (s *RenderLoopSuite) SetUpTest(c *C) {
	s.panel = device.NewMemoryPanel(480, 320)
	s.display = device.NewDisplay(s.panel)
	c.Assert(s.display.Start(), IsNil)
	s.queue = queue.NewDisplayQueue(queue.DefaultCapacity)
	s.loop = NewRenderLoop(s.queue, s.display)
	s.layout = region.NewLayout(s.panel.Bounds()).Regions
}

func (s *RenderLoopSuite) TestOneDrawPerEvent(c *C) {
	s.loop.Start()
	defer s.loop.Stop()

	c.Assert(s.queue.Offer(event.New(event.HOUSE_EVENT_KIND, "Bedroom Motion")), Equals, true)
	c.Assert(waitFor(func() bool { return len(s.panel.Draws()) == 1 }), Equals, true)
	c.Assert(s.panel.Draws()[0], Equals, s.layout[region.HOUSE_MESSAGE])

	regions, err := s.loop.Snapshot(time.Second)
	c.Assert(err, IsNil)
	for _, r := range regions {
		if r.Name == string(region.HOUSE_MESSAGE) {
			c.Assert(r.Text, Equals, "Bedroom Motion")
			c.Assert(r.Dirty, Equals, false)
		} else {
			c.Assert(r.Updates, Equals, int64(0))
		}
	}
}

func (s *RenderLoopSuite) TestBurstOverflowKeepsOrder(c *C) {
	burst := []event.DisplayEvent{
		event.NewValue(event.TEMPERATURE_KIND, "Office: 72.3F", 72.3),
		event.NewValue(event.WIND_KIND, "Wind: 12 mph", 12),
		event.NewValue(event.POWER_KIND, "Power: 1500W", 1500),
		event.New(event.HOUSE_EVENT_KIND, "Bedroom Motion"),
		event.NewState(event.FLAMETHROWER_KIND, "Workshop Flamethrower On", true),
		event.New(event.SYSTEM_MESSAGE_KIND, "Dinner is ready"),
	}
	accepted := 0
	for _, ev := range burst {
		if s.queue.Offer(ev) {
			accepted++
		}
	}
	c.Assert(accepted, Equals, 5)
	c.Assert(s.queue.Dropped(), Equals, int64(1))

	s.loop.Start()
	defer s.loop.Stop()
	c.Assert(waitFor(func() bool { return len(s.panel.Draws()) == 5 }), Equals, true)
	c.Assert(s.panel.Draws(), DeepEquals, []image.Rectangle{
		s.layout[region.TEMPERATURE],
		s.layout[region.WIND],
		s.layout[region.POWER],
		s.layout[region.HOUSE_MESSAGE],
		s.layout[region.FLAMETHROWER_MESSAGE],
	})
}

func (s *RenderLoopSuite) TestDriverFaultKeepsRegionDirty(c *C) {
	hook := test.NewGlobal()
	defer hook.Reset()

	s.panel.SetFault(errors.New("spi timeout"))
	s.loop.Start()
	defer s.loop.Stop()

	c.Assert(s.queue.Offer(event.NewValue(event.TEMPERATURE_KIND, "Office: 72.3F", 72.3)), Equals, true)
	c.Assert(waitFor(func() bool {
		regions, _ := s.loop.Snapshot(time.Second)
		return regions[1].Updates == 1
	}), Equals, true)

	regions, err := s.loop.Snapshot(time.Second)
	c.Assert(err, IsNil)
	c.Assert(regions[1].Dirty, Equals, true)

	found := false
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "Unable to draw region temperature: spi timeout" {
			found = true
		}
	}
	c.Assert(found, Equals, true)

	s.panel.SetFault(nil)
	c.Assert(s.queue.Offer(event.NewValue(event.WIND_KIND, "Wind: 3 mph", 3)), Equals, true)
	c.Assert(waitFor(func() bool { return len(s.panel.Draws()) == 1 }), Equals, true)
	c.Assert(s.panel.Draws()[0], Equals, s.layout[region.WIND])
}

func (s *RenderLoopSuite) TestPanelOffDefersToReplay(c *C) {
	c.Assert(s.display.SetOff(), IsNil)
	s.loop.Start()
	defer s.loop.Stop()

	c.Assert(s.queue.Offer(event.New(event.CLOCK_KIND, "10:42:07 AM")), Equals, true)
	c.Assert(waitFor(func() bool {
		regions, _ := s.loop.Snapshot(time.Second)
		return regions[6].Updates == 1
	}), Equals, true)
	c.Assert(s.panel.Draws(), HasLen, 0)

	c.Assert(s.display.SetOn(), IsNil)
	c.Assert(s.panel.Draws(), DeepEquals, []image.Rectangle{s.layout[region.CLOCK]})
}
