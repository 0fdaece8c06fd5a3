package natsjetstream

import "time"

type Config struct {
	URL           string
	MaxReconnect  int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// StreamConfig describes a stream the service owns or reads from.
type StreamConfig struct {
	Name     string
	Subjects []string
	MaxAge   time.Duration
	// Duplicates is the server-side window for Nats-Msg-Id deduplication.
	Duplicates time.Duration
}
