package srv

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/jypelle/homeboard/internal/srv/config"
	"github.com/jypelle/homeboard/internal/srv/device"
	"github.com/jypelle/homeboard/internal/srv/event"
	"github.com/jypelle/homeboard/internal/srv/queue"
	"github.com/jypelle/homeboard/internal/srv/region"
	"github.com/jypelle/homeboard/internal/srv/route"
	"github.com/jypelle/homeboard/internal/version"
	"github.com/sirupsen/logrus"
)

var errorScreenDuration = 3 * time.Second

type ServerApp struct {
	*config.ServerConfig
	displayQueue    *queue.DisplayQueue
	routeTable      *route.Table
	displayDevice   *device.Display
	clockDevice     *device.Clock
	transportDevice device.Transport
	apiDevice       *device.Api

	renderLoop *RenderLoop
	ingestLoop *IngestLoop

	eventLoopAskDone chan bool
	eventLoopDone    chan bool
}

func NewServerApp(configDir string, debugMode bool, simulationMode bool) *ServerApp {

	logrus.Debugf("Creation of homeboard server %s ...", version.AppVersion.String())

	serverConfig := config.NewServerConfig(configDir, debugMode, simulationMode)

	panel, err := device.NewPanel(serverConfig.Panel, serverConfig.SimulationMode)
	if err != nil {
		logrus.Fatalf("Unable to create panel: %v\n", err)
	}

	var transport device.Transport
	if serverConfig.SimulationMode || serverConfig.Mqtt.Broker == "" {
		logrus.Infof("No broker in use, messages only come from the api")
		transport = device.NewLocalTransport(serverConfig.Mqtt.BaseTopic, serverConfig.Mqtt.InboundBuffer, serverConfig.Mqtt.MaxPayload)
	} else {
		transport = device.NewMqttTransport(serverConfig.Mqtt, serverConfig.Name)
	}

	timeSource, err := device.NewSystemTimeSource(serverConfig.Timezone)
	if err != nil {
		logrus.Fatalf("Unable to create time source: %v\n", err)
	}

	app, err := newServerApp(serverConfig, panel, transport, timeSource)
	if err != nil {
		logrus.Fatalf("Unable to create server: %v\n", err)
	}

	logrus.Debugln("Server created")

	return app
}

func newServerApp(serverConfig *config.ServerConfig, panel device.Panel, transport device.Transport, timeSource device.TimeSource) (*ServerApp, error) {
	table, err := serverConfig.Routes.Table()
	if err != nil {
		return nil, fmt.Errorf("route table: %w", err)
	}

	app := &ServerApp{
		ServerConfig:     serverConfig,
		displayQueue:     queue.NewDisplayQueue(queue.DefaultCapacity),
		routeTable:       table,
		transportDevice:  transport,
		eventLoopAskDone: make(chan bool),
		eventLoopDone:    make(chan bool),
	}

	app.displayDevice = device.NewDisplay(panel)
	app.clockDevice = device.NewClock(app.displayQueue, timeSource)
	app.apiDevice = device.NewApi(serverConfig, app.displayDevice)
	app.renderLoop = NewRenderLoop(app.displayQueue, app.displayDevice)
	app.ingestLoop = NewIngestLoop(transport.Inbound(), table, app.displayQueue, serverConfig.ServerState, app.applyConfigUpdate)

	return app, nil
}

func (s *ServerApp) Start() {
	logrus.Printf("Starting homeboard server ...")

	if err := s.displayDevice.Start(); err != nil {
		logrus.Fatalf("Unable to start display: %v\n", err)
	}
	s.showStartup("display set up")
	s.showStartup(fmt.Sprintf("queue made (%d slots)", s.displayQueue.Cap()))

	// Subscriptions are replayed by the transport on every connection
	if err := s.transportDevice.Subscribe(config.ConfigTopic, 0); err != nil {
		logrus.Warnf("Unable to subscribe to %s: %v", config.ConfigTopic, err)
	}
	for _, topic := range s.routeTable.Topics() {
		if err := s.transportDevice.SubscribeGlobal(topic, 0); err != nil {
			logrus.Warnf("Unable to subscribe to %s: %v", topic, err)
		}
	}

	s.showStartup("connecting to broker")
	if err := s.transportDevice.Start(); err != nil {
		logrus.Warnf("Transport not ready: %v", err)
		if err := s.displayDevice.ShowError("Unable to reach broker"); err != nil {
			logrus.Warnf("Unable to show error screen: %v", err)
		}
		time.Sleep(errorScreenDuration)
	}

	if err := s.displayDevice.FillScreen(region.Background); err != nil {
		logrus.Warnf("Unable to wipe display: %v", err)
	}

	s.renderLoop.Start()
	s.ingestLoop.Start()
	go s.eventLoop()
	s.clockDevice.Start()
	s.apiDevice.Start()

	logrus.Printf("Homeboard server started")
}

// Stop shuts every device down then exits, halting the board when asked.
func (s *ServerApp) Stop(halt bool) {
	s.shutdown()

	if halt {
		logrus.Printf("System halt")
		haltCmd := exec.Command("sudo", "halt")
		err := haltCmd.Run()
		if err != nil {
			logrus.Panicf("Unable to halt the system: %v", err)
		}
	}
	os.Exit(0)
}

func (s *ServerApp) shutdown() {
	logrus.Printf("Stopping homeboard server ...")

	s.apiDevice.StopSendingEvent()
	s.clockDevice.StopSendingEvent()
	s.ingestLoop.Stop()

	logrus.Infof("Stop event loop")
	s.eventLoopAskDone <- true
	<-s.eventLoopDone

	s.renderLoop.Stop()
	s.transportDevice.Stop()

	if err := s.displayDevice.ShowMessage("See you!"); err != nil {
		logrus.Debugf("Unable to show goodbye screen: %v", err)
	}
	s.displayDevice.Stop()

	logrus.Printf("Server stopped")
}

func (s *ServerApp) showStartup(step string) {
	if err := s.displayDevice.ShowStartup(step); err != nil {
		logrus.Warnf("Unable to show startup screen: %v", err)
	}
}

// applyConfigUpdate handles a config topic payload, it runs on the ingest
// loop goroutine.
func (s *ServerApp) applyConfigUpdate(payload string) {
	update, err := config.ParseRuntimeUpdate(payload)
	if err != nil {
		logrus.Warnf("Invalid config update: %v", err)
		return
	}
	s.ServerState.Apply(update)

	if update.DisplayOn != nil {
		if err := s.setDisplay(*update.DisplayOn); err != nil {
			logrus.Warnf("Unable to switch display: %v", err)
		}
	}
	if update.SystemMessage != nil {
		if !s.displayQueue.Offer(event.New(event.SYSTEM_MESSAGE_KIND, *update.SystemMessage)) {
			logrus.Warnf("Display queue full, system message dropped")
		}
	}
	logrus.Infof("Config update applied")
}

func (s *ServerApp) setDisplay(on bool) error {
	if on {
		return s.displayDevice.SetOn()
	}
	return s.displayDevice.SetOff()
}
