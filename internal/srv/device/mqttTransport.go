package device

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
	"github.com/jypelle/homeboard/internal/srv/config"
	"github.com/jypelle/homeboard/internal/srv/event"
	"github.com/sirupsen/logrus"
)

const (
	mqttKeepAlive      = 30
	mqttConnectTimeout = 10 * time.Second
	mqttRequestTimeout = 5 * time.Second
)

// ClientId names the board on the broker.
func ClientId(name string) string {
	if name == "" {
		return "homeboard-" + uuid.New().String()
	}
	return "homeboard-" + name
}

type MqttTransport struct {
	lock     sync.RWMutex
	param    config.MqttParam
	clientId string

	inbound       chan event.InboundMessage
	subscriptions []paho.SubscribeOptions
	dropped       atomic.Int64

	cm        *autopaho.ConnectionManager
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc

	heartbeatTicker *time.Ticker
	askDone         chan bool
	done            chan bool
}

func NewMqttTransport(param config.MqttParam, name string) *MqttTransport {
	return &MqttTransport{
		param:    param,
		clientId: ClientId(name),
		inbound:  make(chan event.InboundMessage, param.InboundBuffer),
		askDone:  make(chan bool),
		done:     make(chan bool),
	}
}

// Start connects to the broker and waits for the first connection. When it
// fails the error is returned but the connection keeps being retried in the
// background.
func (t *MqttTransport) Start() error {
	logrus.Infof("Start mqtt transport device (%s)", t.clientId)

	brokerUrl, err := url.Parse(t.param.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker url: %w", err)
	}

	t.ctx, t.cancel = context.WithCancel(context.Background())

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerUrl},
		KeepAlive:       mqttKeepAlive,
		ConnectUsername: t.param.Username,
		ConnectPassword: []byte(t.param.Password),
		WillMessage: &paho.WillMessage{
			Topic:   t.localTopic(StatusTopic),
			Payload: []byte(OfflinePayload),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: t.onConnectionUp,
		OnConnectError: func(err error) {
			logrus.Warnf("Mqtt connection error: %v", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: t.clientId,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				t.onPublishReceived,
			},
			OnClientError: func(err error) {
				t.setConnected(false)
				logrus.Warnf("Mqtt client error: %v", err)
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				t.setConnected(false)
				logrus.Warnf("Mqtt server disconnected (reason %d)", d.ReasonCode)
			},
		},
	}

	if brokerUrl.Scheme == "mqtts" || brokerUrl.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	cm, err := autopaho.NewConnection(t.ctx, pahoCfg)
	if err != nil {
		t.cancel()
		return fmt.Errorf("mqtt connect: %w", err)
	}
	t.lock.Lock()
	t.cm = cm
	t.lock.Unlock()

	t.startHeartbeat()

	connCtx, connCancel := context.WithTimeout(t.ctx, mqttConnectTimeout)
	defer connCancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotConnected, t.param.Broker, err)
	}
	return nil
}

func (t *MqttTransport) Stop() {
	logrus.Infof("Stop mqtt transport device")

	if t.heartbeatTicker != nil {
		t.heartbeatTicker.Stop()
		t.askDone <- true
		<-t.done
	}

	t.lock.RLock()
	cm := t.cm
	t.lock.RUnlock()
	if cm == nil {
		return
	}

	if err := t.Publish(StatusTopic, OfflinePayload, 1, true); err != nil {
		logrus.Debugf("Unable to publish offline status: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), mqttRequestTimeout)
	defer cancel()
	if err := cm.Disconnect(ctx); err != nil {
		logrus.Warnf("Mqtt disconnect: %v", err)
	}
	t.cancel()
}

func (t *MqttTransport) Inbound() <-chan event.InboundMessage {
	return t.inbound
}

func (t *MqttTransport) Publish(topic, payload string, qos byte, retain bool) error {
	return t.publishGlobal(t.localTopic(topic), payload, qos, retain)
}

func (t *MqttTransport) publishGlobal(topic, payload string, qos byte, retain bool) error {
	t.lock.RLock()
	cm, connected := t.cm, t.connected
	t.lock.RUnlock()
	if cm == nil || !connected {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(t.ctx, mqttRequestTimeout)
	defer cancel()
	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: []byte(payload),
		QoS:     qos,
		Retain:  retain,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (t *MqttTransport) Subscribe(topic string, qos byte) error {
	return t.SubscribeGlobal(t.localTopic(topic), qos)
}

// SubscribeGlobal records the subscription, it is replayed on every
// reconnection.
func (t *MqttTransport) SubscribeGlobal(topic string, qos byte) error {
	t.lock.Lock()
	options := paho.SubscribeOptions{Topic: topic, QoS: qos}
	t.subscriptions = append(t.subscriptions, options)
	cm, connected := t.cm, t.connected
	t.lock.Unlock()

	if cm == nil || !connected {
		logrus.Debugf("Subscription to %s deferred until connected", topic)
		return nil
	}
	return t.subscribe(cm, options)
}

func (t *MqttTransport) Dropped() int64 {
	return t.dropped.Load()
}

func (t *MqttTransport) localTopic(topic string) string {
	return localTopic(t.param.BaseTopic, topic)
}

func (t *MqttTransport) setConnected(connected bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.connected = connected
}

func (t *MqttTransport) subscribe(cm *autopaho.ConnectionManager, options ...paho.SubscribeOptions) error {
	ctx, cancel := context.WithTimeout(t.ctx, mqttRequestTimeout)
	defer cancel()
	if _, err := cm.Subscribe(ctx, &paho.Subscribe{Subscriptions: options}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	for _, o := range options {
		logrus.Debugf("Subscribed to %s", o.Topic)
	}
	return nil
}

func (t *MqttTransport) onConnectionUp(cm *autopaho.ConnectionManager, _ *paho.Connack) {
	logrus.Infof("Mqtt connected to %s", t.param.Broker)

	t.lock.Lock()
	t.connected = true
	subscriptions := append([]paho.SubscribeOptions(nil), t.subscriptions...)
	t.lock.Unlock()

	if len(subscriptions) > 0 {
		if err := t.subscribe(cm, subscriptions...); err != nil {
			logrus.Warnf("Mqtt resubscription failed: %v", err)
		}
	}
	if err := t.Publish(StatusTopic, AlivePayload, 0, false); err != nil {
		logrus.Warnf("Mqtt status publish failed: %v", err)
	}
}

func (t *MqttTransport) onPublishReceived(pr paho.PublishReceived) (bool, error) {
	msg := newInboundMessage(t.param.BaseTopic, pr.Packet.Topic, pr.Packet.Payload, t.param.MaxPayload)
	select {
	case t.inbound <- msg:
	default:
		t.dropped.Add(1)
		logrus.Warnf("Inbound buffer full, message on %s dropped", msg.GlobalTopic)
	}
	return true, nil
}

func (t *MqttTransport) startHeartbeat() {
	interval := t.param.Heartbeat()
	if interval <= 0 {
		return
	}
	t.heartbeatTicker = time.NewTicker(interval)

	go func() {
		for loop := true; loop; {
			select {
			case now := <-t.heartbeatTicker.C:
				if err := t.Publish(HeartbeatTopic, now.Format(time.RFC3339), 0, false); err != nil {
					logrus.Debugf("Heartbeat not sent: %v", err)
				}
			case <-t.askDone:
				loop = false
			}
		}
		t.done <- true
	}()
}
