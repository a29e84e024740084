package server

import "time"

type Config struct {
	// ListenAddr is the HTTP listen address, e.g. "127.0.0.1:8080".
	ListenAddr string

	// ReadTimeout bounds reading a request. Writes are not bounded so
	// websocket streams can stay open.
	ReadTimeout time.Duration

	// RateLimit is the sustained number of mutating requests per second
	// (scrape, format, copy, download). Zero or less disables limiting.
	RateLimit float64

	// RateBurst is the number of mutating requests allowed at once.
	RateBurst int

	// AllowedOrigin is sent as Access-Control-Allow-Origin and checked on
	// websocket upgrades. "*" allows any origin.
	AllowedOrigin string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:    "127.0.0.1:8080",
		ReadTimeout:   15 * time.Second,
		RateLimit:     5,
		RateBurst:     10,
		AllowedOrigin: "*",
	}
}
