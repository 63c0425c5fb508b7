package srv

import (
	"errors"
	"time"

	"github.com/jypelle/homeboard/internal/srv/config"
	"github.com/jypelle/homeboard/internal/srv/event"
	"github.com/jypelle/homeboard/internal/srv/queue"
	"github.com/jypelle/homeboard/internal/srv/route"
	"github.com/sirupsen/logrus"
)

const (
	IngestReceiveTimeout = 5 * time.Second
	ingestInjectBuffer   = 8
)

var ErrIngestBusy = errors.New("message ingestion is busy")

// IngestLoop turns inbound messages into display events.
type IngestLoop struct {
	inbound  <-chan event.InboundMessage
	injected chan event.InboundMessage
	table    *route.Table
	queue    *queue.DisplayQueue
	state    *config.ServerState
	onConfig func(payload string)

	ReceiveTimeout time.Duration

	askDone chan bool
	done    chan bool
}

func NewIngestLoop(inbound <-chan event.InboundMessage, table *route.Table, displayQueue *queue.DisplayQueue, state *config.ServerState, onConfig func(payload string)) *IngestLoop {
	return &IngestLoop{
		inbound:        inbound,
		injected:       make(chan event.InboundMessage, ingestInjectBuffer),
		table:          table,
		queue:          displayQueue,
		state:          state,
		onConfig:       onConfig,
		ReceiveTimeout: IngestReceiveTimeout,
		askDone:        make(chan bool),
		done:           make(chan bool),
	}
}

func (l *IngestLoop) Start() {
	logrus.Infof("Start ingest loop")
	go func() {
		for loop := true; loop; {
			select {
			case msg := <-l.inbound:
				l.handle(msg)
			case msg := <-l.injected:
				l.handle(msg)
			case <-time.After(l.ReceiveTimeout):
				logrus.Debugf("No message received for %v", l.ReceiveTimeout)
			case <-l.askDone:
				loop = false
			}
		}
		l.done <- true
	}()
}

func (l *IngestLoop) Stop() {
	logrus.Infof("Stop ingest loop")
	l.askDone <- true
	<-l.done
}

// Inject handles a message as if it had been received from the broker.
func (l *IngestLoop) Inject(topic, payload string) error {
	select {
	case l.injected <- event.InboundMessage{Topic: topic, GlobalTopic: topic, Payload: payload}:
		return nil
	default:
		return ErrIngestBusy
	}
}

func (l *IngestLoop) handle(msg event.InboundMessage) {
	logrus.Debugf("Message on %s: %q", msg.GlobalTopic, msg.Payload)

	if msg.Topic == config.ConfigTopic {
		if l.onConfig != nil {
			l.onConfig(msg.Payload)
		}
		return
	}

	ev, ok := l.table.Classify(msg.Topic, msg.Payload)
	if !ok {
		logrus.Warnf("Unknown topic %q", msg.Topic)
		if !l.state.ShowUnknownTopics() {
			return
		}
	}
	if !l.queue.Offer(ev) {
		logrus.Warnf("Display queue full, %s dropped", ev)
	}
}
