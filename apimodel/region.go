package apimodel

import "time"

// Region is the last rendered state of one screen region.
type Region struct {
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	Value     float64   `json:"value"`
	Dirty     bool      `json:"dirty"`
	Updates   int64     `json:"updates"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type PublishRequest struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

type Status struct {
	Version           string    `json:"version"`
	DisplayOn         bool      `json:"display_on"`
	ShowUnknownTopics bool      `json:"show_unknown_topics"`
	QueueLength       int       `json:"queue_length"`
	QueueDropped      int64     `json:"queue_dropped"`
	ConfigUpdates     int64     `json:"config_updates"`
	LastConfigUpdate  time.Time `json:"last_config_update,omitempty"`
}
