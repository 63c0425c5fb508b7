package config

import (
	"sync"
	"time"
)

// ServerState holds the settings changed at runtime through the config
// topic. It lives in memory only: a restart goes back to param.yaml.
type ServerState struct {
	lock              sync.RWMutex
	showUnknownTopics bool
	configUpdates     int64
	lastConfigUpdate  time.Time
}

func NewServerState(showUnknownTopics bool) *ServerState {
	return &ServerState{showUnknownTopics: showUnknownTopics}
}

func (ss *ServerState) ShowUnknownTopics() bool {
	ss.lock.RLock()
	defer ss.lock.RUnlock()

	return ss.showUnknownTopics
}

func (ss *ServerState) SetShowUnknownTopics(show bool) {
	ss.lock.Lock()
	defer ss.lock.Unlock()

	ss.showUnknownTopics = show
}

// ConfigUpdates returns how many config messages were applied and when the
// last one arrived.
func (ss *ServerState) ConfigUpdates() (int64, time.Time) {
	ss.lock.RLock()
	defer ss.lock.RUnlock()

	return ss.configUpdates, ss.lastConfigUpdate
}

func (ss *ServerState) recordConfigUpdate(at time.Time) {
	ss.lock.Lock()
	defer ss.lock.Unlock()

	ss.configUpdates++
	ss.lastConfigUpdate = at
}
