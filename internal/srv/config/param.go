package config

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jypelle/homeboard/internal/srv/route"
)

//go:embed param_default.yaml
var ParamDefaultFile []byte

type ServerParam struct {
	Name     string      `yaml:"name"`
	Timezone string      `yaml:"timezone"`
	Mqtt     MqttParam   `yaml:"mqtt"`
	Panel    PanelParam  `yaml:"panel"`
	ApiParam ApiParam    `yaml:"api"`
	Routes   RoutesParam `yaml:"routes"`
}

type MqttParam struct {
	Broker            string `yaml:"broker"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	BaseTopic         string `yaml:"base_topic"`
	HeartbeatInterval int64  `yaml:"heartbeat_interval"`
	InboundBuffer     int    `yaml:"inbound_buffer"`
	MaxPayload        int    `yaml:"max_payload"`
}

func (p MqttParam) Heartbeat() time.Duration {
	return time.Duration(p.HeartbeatInterval) * time.Second
}

type PanelParam struct {
	Driver   string `yaml:"driver"`
	Bus      string `yaml:"bus"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	PowerPin string `yaml:"power_pin"`
	DcPin    string `yaml:"dc_pin"`
	Contrast uint8  `yaml:"contrast"`
}

type ApiParam struct {
	Enabled bool   `yaml:"enabled"`
	SslPort int64  `yaml:"ssl_port"`
	ApiKey  string `yaml:"api_key"`
}

type RoutesParam struct {
	Match             string              `yaml:"match"`
	ShowUnknownTopics *bool               `yaml:"show_unknown_topics"`
	CounterTopic      string              `yaml:"counter_topic"`
	CounterLabel      string              `yaml:"counter_label"`
	Rooms             []RoomParam         `yaml:"rooms"`
	WindTopic         string              `yaml:"wind_topic"`
	PowerTopic        string              `yaml:"power_topic"`
	MessageTopic      string              `yaml:"message_topic"`
	ErrorTopic        string              `yaml:"error_topic"`
	Flamethrowers     []FlamethrowerParam `yaml:"flamethrowers"`
}

type RoomParam struct {
	Name             string `yaml:"name"`
	MotionTopic      string `yaml:"motion_topic"`
	TemperatureTopic string `yaml:"temperature_topic"`
	TemperatureLabel string `yaml:"temperature_label"`
}

// TemperatureName is the room name shown next to its temperature.
func (r RoomParam) TemperatureName() string {
	if r.TemperatureLabel != "" {
		return r.TemperatureLabel
	}
	return r.Name
}

type FlamethrowerParam struct {
	Room  string `yaml:"room"`
	Topic string `yaml:"topic"`
}

const (
	PANEL_DRIVER_SSD1306_I2C = "ssd1306-i2c"
	PANEL_DRIVER_SSD1306_SPI = "ssd1306-spi"
	PANEL_DRIVER_MEMORY      = "memory"
)

// ShowUnknown tells whether unrecognized topics are echoed on the display.
func (p RoutesParam) ShowUnknown() bool {
	return p.ShowUnknownTopics == nil || *p.ShowUnknownTopics
}

// Validate reports the first inconsistent field.
func (p *ServerParam) Validate() error {
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}

	if p.Mqtt.Broker != "" {
		u, err := url.Parse(p.Mqtt.Broker)
		if err != nil {
			return fmt.Errorf("mqtt.broker: %w", err)
		}
		switch u.Scheme {
		case "mqtt", "tcp", "mqtts", "ssl", "ws", "wss":
		default:
			return fmt.Errorf("mqtt.broker: unsupported scheme %q", u.Scheme)
		}
	}
	if strings.Contains(p.Mqtt.BaseTopic, "#") || strings.Contains(p.Mqtt.BaseTopic, "+") {
		return fmt.Errorf("mqtt.base_topic: wildcards are not allowed")
	}
	if p.Mqtt.HeartbeatInterval < 0 {
		return fmt.Errorf("mqtt.heartbeat_interval: must not be negative")
	}
	if p.Mqtt.InboundBuffer < 0 || p.Mqtt.MaxPayload < 0 {
		return fmt.Errorf("mqtt: buffer sizes must not be negative")
	}

	switch p.Panel.Driver {
	case PANEL_DRIVER_SSD1306_I2C, PANEL_DRIVER_SSD1306_SPI, PANEL_DRIVER_MEMORY:
	default:
		return fmt.Errorf("panel.driver: unknown driver %q", p.Panel.Driver)
	}
	if p.Panel.Width <= 0 || p.Panel.Height <= 0 {
		return fmt.Errorf("panel: width and height must be positive")
	}
	if p.Panel.Driver == PANEL_DRIVER_SSD1306_SPI && p.Panel.DcPin == "" {
		return fmt.Errorf("panel.dc_pin: required by the %s driver", PANEL_DRIVER_SSD1306_SPI)
	}

	if p.ApiParam.Enabled {
		if p.ApiParam.SslPort <= 0 || p.ApiParam.SslPort > 65535 {
			return fmt.Errorf("api.ssl_port: %d is not a valid port", p.ApiParam.SslPort)
		}
		if p.ApiParam.ApiKey == "" {
			return fmt.Errorf("api.api_key: required when the api is enabled")
		}
	}

	if _, err := route.ParseMatchMode(p.Routes.Match); err != nil {
		return fmt.Errorf("routes.match: %w", err)
	}
	for i, room := range p.Routes.Rooms {
		if room.Name == "" {
			return fmt.Errorf("routes.rooms[%d].name: required", i)
		}
	}
	for i, f := range p.Routes.Flamethrowers {
		if f.Topic == "" {
			return fmt.Errorf("routes.flamethrowers[%d].topic: required", i)
		}
	}
	return nil
}
