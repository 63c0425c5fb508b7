package srv

import (
	"fmt"
	"time"

	"github.com/jypelle/homeboard/apimodel"
	"github.com/jypelle/homeboard/internal/srv/event"
	"github.com/jypelle/homeboard/internal/version"
	"github.com/sirupsen/logrus"
)

const snapshotTimeout = time.Second

func (s *ServerApp) eventLoop() {
	for loop := true; loop; {
		select {
		case ev := <-s.apiDevice.EventChannel():
			switch data := ev.Data.(type) {
			case event.ApiEventPublishData:
				logrus.Debugf("Receive api publish event on %s", data.Topic)
				ev.Result <- s.ingestLoop.Inject(data.Topic, data.Payload)
			case event.ApiEventDisplayData:
				logrus.Debugf("Receive api display event: %s", data.State)
				ev.Result <- s.switchDisplay(data.State)
			case event.ApiEventRegionsData:
				regions, err := s.renderLoop.Snapshot(snapshotTimeout)
				if err == nil {
					data.Regions <- regions
				}
				ev.Result <- err
			case event.ApiEventStatusData:
				data.Status <- s.status()
				ev.Result <- nil
			default:
				ev.Result <- fmt.Errorf("unsupported api event %T", ev.Data)
			}
		case <-s.eventLoopAskDone:
			loop = false
		}
	}
	s.eventLoopDone <- true
}

func (s *ServerApp) switchDisplay(state string) error {
	switch state {
	case "on":
		return s.setDisplay(true)
	case "off":
		return s.setDisplay(false)
	case "switch":
		on, err := s.displayDevice.Switch()
		logrus.Infof("Display switched %s", map[bool]string{true: "on", false: "off"}[on])
		return err
	default:
		return fmt.Errorf("unknown display state %q", state)
	}
}

func (s *ServerApp) status() apimodel.Status {
	updates, last := s.ConfigUpdates()
	return apimodel.Status{
		Version:           version.AppVersion.String(),
		DisplayOn:         s.displayDevice.IsOn(),
		ShowUnknownTopics: s.ShowUnknownTopics(),
		QueueLength:       s.displayQueue.Len(),
		QueueDropped:      s.displayQueue.Dropped(),
		ConfigUpdates:     updates,
		LastConfigUpdate:  last,
	}
}
