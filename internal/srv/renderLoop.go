package srv

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/jypelle/homeboard/apimodel"
	"github.com/jypelle/homeboard/internal/srv/device"
	"github.com/jypelle/homeboard/internal/srv/event"
	"github.com/jypelle/homeboard/internal/srv/queue"
	"github.com/jypelle/homeboard/internal/srv/region"
	"github.com/sirupsen/logrus"
)

const RenderPollInterval = 10 * time.Millisecond

// Surface is where the render loop paints regions.
type Surface interface {
	DrawRegion(r image.Rectangle, mask *image.Alpha, fg, bg color.Color) error
	Bounds() image.Rectangle
}

// RenderLoop is the only consumer of the display queue and the only owner of
// the region store.
type RenderLoop struct {
	queue   *queue.DisplayQueue
	surface Surface
	store   *region.Store
	layout  region.Layout

	PollInterval time.Duration

	snapshotRequests chan chan []apimodel.Region
	askDone          chan bool
	done             chan bool
}

func NewRenderLoop(displayQueue *queue.DisplayQueue, surface Surface) *RenderLoop {
	return &RenderLoop{
		queue:            displayQueue,
		surface:          surface,
		store:            region.NewStore(),
		layout:           region.NewLayout(surface.Bounds()),
		PollInterval:     RenderPollInterval,
		snapshotRequests: make(chan chan []apimodel.Region),
		askDone:          make(chan bool),
		done:             make(chan bool),
	}
}

func (l *RenderLoop) Start() {
	logrus.Infof("Start render loop")
	go func() {
		for loop := true; loop; {
			select {
			case <-l.askDone:
				loop = false
				continue
			case reply := <-l.snapshotRequests:
				reply <- l.store.Snapshot()
				continue
			default:
			}

			if ev, ok := l.queue.PollTimeout(l.PollInterval); ok {
				l.render(ev)
			}
		}
		l.done <- true
	}()
}

func (l *RenderLoop) Stop() {
	logrus.Infof("Stop render loop")
	l.askDone <- true
	<-l.done
}

// Snapshot asks the loop for a copy of the region store.
func (l *RenderLoop) Snapshot(timeout time.Duration) ([]apimodel.Region, error) {
	reply := make(chan []apimodel.Region, 1)
	select {
	case l.snapshotRequests <- reply:
		return <-reply, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("render loop did not answer within %v", timeout)
	}
}

// render applies ev and repaints its region only. A region whose draw failed
// stays dirty until its next event.
func (l *RenderLoop) render(ev event.DisplayEvent) {
	name := l.store.Apply(ev)
	r := l.layout.Regions[name]
	current, _ := l.store.Get(name)

	err := l.surface.DrawRegion(r, l.layout.Label(name, current.Text), region.Foreground(name), region.Background)
	switch {
	case err == nil:
		l.store.MarkClean(name)
	case errors.Is(err, device.ErrPanelOff):
		logrus.Debugf("Panel off, region %s kept for replay", name)
		l.store.MarkClean(name)
	default:
		logrus.Warnf("Unable to draw region %s: %v", name, err)
	}
}
