package session

import "time"

// CreateRequest defines payload for creating a new session. Both fields are
// optional; the server falls back to its default key and first catalog model.
type CreateRequest struct {
	APIKey    string `json:"api_key"`
	ModelName string `json:"model_name"`
}

// CreateResponse returns created session metadata.
type CreateResponse struct {
	SessionID       string    `json:"session_id"`
	Status          Status    `json:"status"`
	ModelName       string    `json:"model_name,omitempty"`
	Configured      bool      `json:"configured"`
	ConfigError     string    `json:"config_error,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
	InactivityTTLMS int64     `json:"inactivity_ttl_ms"`
}
