package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ConfigTopic is the device-local topic carrying runtime settings.
const ConfigTopic = "config"

var ErrEmptyUpdate = errors.New("empty config payload")

// RuntimeUpdate is a config topic payload. Every field is optional, JSON
// payloads are accepted since they are valid YAML.
type RuntimeUpdate struct {
	LogLevel          *string `yaml:"log_level"`
	ShowUnknownTopics *bool   `yaml:"show_unknown_topics"`
	DisplayOn         *bool   `yaml:"display_on"`
	SystemMessage     *string `yaml:"system_message"`
}

func ParseRuntimeUpdate(payload string) (RuntimeUpdate, error) {
	var update RuntimeUpdate
	if strings.TrimSpace(payload) == "" {
		return update, ErrEmptyUpdate
	}
	if err := yaml.Unmarshal([]byte(payload), &update); err != nil {
		return update, fmt.Errorf("decode config payload: %w", err)
	}
	if update.LogLevel != nil {
		if _, err := logrus.ParseLevel(*update.LogLevel); err != nil {
			return update, fmt.Errorf("log_level: %w", err)
		}
	}
	return update, nil
}

// Apply stores the settings the state owns and changes the log level. The
// display related fields are left to the caller.
func (ss *ServerState) Apply(update RuntimeUpdate) {
	if update.LogLevel != nil {
		level, _ := logrus.ParseLevel(*update.LogLevel)
		logrus.Infof("Log level set to %s", level)
		logrus.SetLevel(level)
	}
	if update.ShowUnknownTopics != nil {
		ss.SetShowUnknownTopics(*update.ShowUnknownTopics)
	}
	ss.recordConfigUpdate(time.Now())
}
