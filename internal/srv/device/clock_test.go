package device

import (
	"errors"
	"time"

	"github.com/jypelle/homeboard/internal/srv/event"
	"github.com/jypelle/homeboard/internal/srv/queue"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	. "gopkg.in/check.v1"
)

type fakeTimeSource struct {
	now string
	err error
}

func (f fakeTimeSource) CurrentTime(layout string) (string, error) {
	return f.now, f.err
}

type ClockSuite struct{}

var _ = Suite(&ClockSuite{})

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func (s *ClockSuite) TestTicksReachQueue(c *C) {
	q := queue.NewDisplayQueue(queue.DefaultCapacity)
	clock := NewClock(q, fakeTimeSource{now: "10:42:07 AM"})
	clock.Interval = 20 * time.Millisecond
	clock.Start()
	c.Assert(waitFor(func() bool { return q.Len() >= 2 }), Equals, true)
	clock.StopSendingEvent()

	ev, ok := q.PollTimeout(0)
	c.Assert(ok, Equals, true)
	c.Assert(ev.Kind(), Equals, event.CLOCK_KIND)
	c.Assert(ev.Text().String(), Equals, "10:42:07 AM")
}

func (s *ClockSuite) TestTimeFailureIsLoggedAndSkipped(c *C) {
	hook := test.NewGlobal()
	defer hook.Reset()

	q := queue.NewDisplayQueue(queue.DefaultCapacity)
	clock := NewClock(q, fakeTimeSource{err: ErrTimeNotSynced})
	clock.tick()

	c.Assert(q.Len(), Equals, 0)
	c.Assert(hook.LastEntry().Level, Equals, logrus.WarnLevel)
	c.Assert(hook.LastEntry().Message, Matches, "Failed to obtain time: .*")
}

func (s *ClockSuite) TestFullQueueDropsTick(c *C) {
	hook := test.NewGlobal()
	defer hook.Reset()

	q := queue.NewDisplayQueue(1)
	c.Assert(q.Offer(event.New(event.WIND_KIND, "Wind: 3 mph")), Equals, true)

	clock := NewClock(q, fakeTimeSource{now: "10:42:08 AM"})
	clock.EnqueueTimeout = 10 * time.Millisecond
	clock.tick()

	c.Assert(q.Dropped(), Equals, int64(1))
	c.Assert(hook.LastEntry().Message, Equals, "Display queue full, clock tick 10:42:08 AM dropped")

	ev, _ := q.PollTimeout(0)
	c.Assert(ev.Kind(), Equals, event.WIND_KIND)
}

func (s *ClockSuite) TestSystemTimeSource(c *C) {
	source, err := NewSystemTimeSource("UTC")
	c.Assert(err, IsNil)

	source.now = func() time.Time { return time.Unix(0, 0) }
	_, err = source.CurrentTime(ClockLayout)
	c.Assert(errors.Is(err, ErrTimeNotSynced), Equals, true)

	source.now = func() time.Time { return time.Date(2026, 10, 16, 14, 5, 9, 0, time.UTC) }
	now, err := source.CurrentTime(ClockLayout)
	c.Assert(err, IsNil)
	c.Assert(now, Equals, "02:05:09 PM")

	_, err = NewSystemTimeSource("Nowhere/Special")
	c.Assert(err, ErrorMatches, `load timezone "Nowhere/Special": .*`)
}
