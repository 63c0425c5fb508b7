package device

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jypelle/homeboard/internal/srv/event"
	"github.com/sirupsen/logrus"
)

const (
	StatusTopic    = "status"
	HeartbeatTopic = "heartbeat"
	AlivePayload   = "I'm alive!!"
	OfflinePayload = "offline"
)

var ErrNotConnected = errors.New("transport is not connected")

// Transport carries messages between the broker and the board. Local topics
// live under the board namespace, global topics are used verbatim.
type Transport interface {
	Start() error
	Stop()
	Inbound() <-chan event.InboundMessage
	Publish(topic, payload string, qos byte, retain bool) error
	Subscribe(topic string, qos byte) error
	SubscribeGlobal(topic string, qos byte) error
}

func localTopic(baseTopic, topic string) string {
	if baseTopic == "" {
		return topic
	}
	return baseTopic + "/" + topic
}

// newInboundMessage strips the board namespace from the topic and cuts the
// payload to maxPayload bytes when maxPayload is positive.
func newInboundMessage(baseTopic, fullTopic string, payload []byte, maxPayload int) event.InboundMessage {
	if maxPayload > 0 && len(payload) > maxPayload {
		payload = payload[:maxPayload]
	}
	topic := fullTopic
	if baseTopic != "" && strings.HasPrefix(fullTopic, baseTopic+"/") {
		topic = fullTopic[len(baseTopic)+1:]
	}
	return event.InboundMessage{
		Topic:       topic,
		GlobalTopic: fullTopic,
		Payload:     string(payload),
	}
}

// topicMatches applies the MQTT filter rules: + matches one level, # the rest.
func topicMatches(filter, topic string) bool {
	filterLevels := strings.Split(filter, "/")
	topicLevels := strings.Split(topic, "/")
	for i, f := range filterLevels {
		if f == "#" {
			return true
		}
		if i >= len(topicLevels) {
			return false
		}
		if f != "+" && f != topicLevels[i] {
			return false
		}
	}
	return len(filterLevels) == len(topicLevels)
}

type PublishedMessage struct {
	Topic   string
	Payload string
	QoS     byte
	Retain  bool
}

// LocalTransport is an in-memory broker loopback used in simulation mode and
// tests.
type LocalTransport struct {
	lock          sync.RWMutex
	baseTopic     string
	maxPayload    int
	inbound       chan event.InboundMessage
	subscriptions map[string]byte
	published     []PublishedMessage
	started       bool
	dropped       atomic.Int64
}

func NewLocalTransport(baseTopic string, buffer int, maxPayload int) *LocalTransport {
	return &LocalTransport{
		baseTopic:     baseTopic,
		maxPayload:    maxPayload,
		inbound:       make(chan event.InboundMessage, buffer),
		subscriptions: make(map[string]byte),
	}
}

func (t *LocalTransport) Start() error {
	logrus.Infof("Start local transport device")
	t.lock.Lock()
	t.started = true
	t.lock.Unlock()
	return t.Publish(StatusTopic, AlivePayload, 0, false)
}

func (t *LocalTransport) Stop() {
	logrus.Infof("Stop local transport device")
	t.lock.Lock()
	defer t.lock.Unlock()
	t.started = false
}

func (t *LocalTransport) Inbound() <-chan event.InboundMessage {
	return t.inbound
}

func (t *LocalTransport) Publish(topic, payload string, qos byte, retain bool) error {
	t.lock.Lock()
	if !t.started {
		t.lock.Unlock()
		return ErrNotConnected
	}
	full := localTopic(t.baseTopic, topic)
	t.published = append(t.published, PublishedMessage{Topic: full, Payload: payload, QoS: qos, Retain: retain})
	t.lock.Unlock()

	t.Deliver(full, payload)
	return nil
}

func (t *LocalTransport) Subscribe(topic string, qos byte) error {
	return t.SubscribeGlobal(localTopic(t.baseTopic, topic), qos)
}

func (t *LocalTransport) SubscribeGlobal(topic string, qos byte) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.subscriptions[topic] = qos
	logrus.Debugf("Subscribed to %s", topic)
	return nil
}

// Deliver hands a message published on fullTopic to the board, as the broker
// would. It reports whether a subscription matched and the message was
// accepted.
func (t *LocalTransport) Deliver(fullTopic, payload string) bool {
	t.lock.RLock()
	subscribed := false
	for filter := range t.subscriptions {
		if topicMatches(filter, fullTopic) {
			subscribed = true
			break
		}
	}
	t.lock.RUnlock()
	if !subscribed {
		return false
	}

	select {
	case t.inbound <- newInboundMessage(t.baseTopic, fullTopic, []byte(payload), t.maxPayload):
		return true
	default:
		t.dropped.Add(1)
		logrus.Warnf("Inbound buffer full, message on %s dropped", fullTopic)
		return false
	}
}

func (t *LocalTransport) Published() []PublishedMessage {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return append([]PublishedMessage(nil), t.published...)
}

func (t *LocalTransport) Dropped() int64 {
	return t.dropped.Load()
}
