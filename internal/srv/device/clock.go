package device

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jypelle/homeboard/internal/srv/event"
	"github.com/jypelle/homeboard/internal/srv/queue"
	"github.com/sirupsen/logrus"
)

const (
	ClockLayout         = "03:04:05 PM"
	ClockInterval       = time.Second
	ClockEnqueueTimeout = 500 * time.Millisecond
)

var ErrTimeNotSynced = errors.New("wall clock is not synchronised")

type TimeSource interface {
	CurrentTime(layout string) (string, error)
}

// SystemTimeSource reads the host clock in the configured timezone.
type SystemTimeSource struct {
	location *time.Location
	now      func() time.Time
}

func NewSystemTimeSource(timezone string) (*SystemTimeSource, error) {
	location := time.Local
	if timezone != "" {
		var err error
		location, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
		}
	}
	return &SystemTimeSource{location: location, now: time.Now}, nil
}

// CurrentTime fails until the host clock has been set, boards without a
// battery backed RTC start in 1970.
func (s *SystemTimeSource) CurrentTime(layout string) (string, error) {
	now := s.now().In(s.location)
	if now.Year() < 2020 {
		return "", ErrTimeNotSynced
	}
	return now.Format(layout), nil
}

// Clock pushes the formatted wall clock time to the display queue.
type Clock struct {
	lock       sync.Mutex
	queue      *queue.DisplayQueue
	timeSource TimeSource

	Interval       time.Duration
	EnqueueTimeout time.Duration

	refreshClockTicker *time.Ticker

	askDone chan bool
	done    chan bool
}

func NewClock(displayQueue *queue.DisplayQueue, timeSource TimeSource) *Clock {
	clock := Clock{
		queue:          displayQueue,
		timeSource:     timeSource,
		Interval:       ClockInterval,
		EnqueueTimeout: ClockEnqueueTimeout,
		askDone:        make(chan bool),
		done:           make(chan bool),
	}
	return &clock
}

func (d *Clock) Start() {
	logrus.Infof("Start clock device")
	d.lock.Lock()
	defer d.lock.Unlock()

	d.refreshClockTicker = time.NewTicker(d.Interval)

	go func() {
		for loop := true; loop; {
			select {
			case <-d.refreshClockTicker.C:
				d.tick()
			case <-d.askDone:
				loop = false
			}
		}
		d.done <- true
	}()
}

func (d *Clock) StopSendingEvent() {
	logrus.Infof("Stop clock device")
	d.lock.Lock()
	defer d.lock.Unlock()

	d.refreshClockTicker.Stop()
	d.askDone <- true
	<-d.done
}

// tick enqueues the current time. A missed tick is never backfilled.
func (d *Clock) tick() {
	now, err := d.timeSource.CurrentTime(ClockLayout)
	if err != nil {
		logrus.Warnf("Failed to obtain time: %v", err)
		return
	}
	if !d.queue.OfferTimeout(event.New(event.CLOCK_KIND, now), d.EnqueueTimeout) {
		logrus.Warnf("Display queue full, clock tick %s dropped", now)
	}
}
