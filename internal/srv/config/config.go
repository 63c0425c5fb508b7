package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const paramFilename = "param.yaml"

type ServerConfig struct {
	ConfigDir      string
	DebugMode      bool
	SimulationMode bool

	*ServerParam
	*ServerState
}

func NewServerConfig(configDir string, debugMode bool, simulationMode bool) *ServerConfig {
	serverConfig := &ServerConfig{
		ConfigDir:      configDir,
		DebugMode:      debugMode,
		SimulationMode: simulationMode,
	}

	// Check Configuration folder
	_, err := os.Stat(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Printf("Creation of config folder: %s", configDir)
			err = os.MkdirAll(configDir, 0770)
			if err != nil {
				logrus.Fatalf("Unable to create config folder: %v\n", err)
			}
		} else {
			logrus.Fatalf("Unable to access config folder: %s", configDir)
		}
	}

	// Open param file
	rawConfig, err := os.ReadFile(serverConfig.GetCompleteParamFilename())
	if err != nil {
		logrus.Infof("Create default param file")
		rawConfig = ParamDefaultFile
		serverConfig.ServerParam, err = LoadServerParam(rawConfig)
		if err != nil {
			logrus.Fatalf("Unable to interpret default param file: %v\n", err)
		}
		serverConfig.SaveParam()
	} else {
		serverConfig.ServerParam, err = LoadServerParam(rawConfig)
		if err != nil {
			logrus.Fatalf("Unable to interpret param file %s: %v\n", serverConfig.GetCompleteParamFilename(), err)
		}
	}

	serverConfig.ServerState = NewServerState(serverConfig.Routes.ShowUnknown())

	return serverConfig
}

// LoadServerParam decodes and validates a param file. Missing fields keep the
// defaults of the embedded param file, except for lists which are replaced.
func LoadServerParam(raw []byte) (*ServerParam, error) {
	param := &ServerParam{}
	if err := yaml.Unmarshal(ParamDefaultFile, param); err != nil {
		return nil, fmt.Errorf("default param: %w", err)
	}
	param.Routes.Rooms = nil
	param.Routes.Flamethrowers = nil

	if err := yaml.Unmarshal(raw, param); err != nil {
		return nil, err
	}
	if err := param.Validate(); err != nil {
		return nil, err
	}
	return param, nil
}

// ReadServerParam loads the param file of configDir without creating
// anything. A missing file gives the defaults.
func ReadServerParam(configDir string) (*ServerParam, error) {
	rawConfig, err := os.ReadFile(filepath.Join(configDir, paramFilename))
	if os.IsNotExist(err) {
		return LoadServerParam(ParamDefaultFile)
	}
	if err != nil {
		return nil, err
	}
	return LoadServerParam(rawConfig)
}

func (sc *ServerConfig) GetCompleteParamFilename() string {
	return filepath.Join(sc.ConfigDir, paramFilename)
}

func (sc *ServerConfig) SaveParam() {
	logrus.Debugf("Save param file: %s", sc.GetCompleteParamFilename())
	rawConfig, err := yaml.Marshal(sc.ServerParam)
	if err != nil {
		logrus.Fatalf("Unable to serialize param file: %v\n", err)
	}
	err = os.WriteFile(sc.GetCompleteParamFilename(), rawConfig, 0660)
	if err != nil {
		logrus.Fatalf("Unable to save param file: %v\n", err)
	}
}
