package wirechat

import "time"

// Config controls how the SDK connects.
type Config struct {
	URL              string
	RESTBaseURL      string // optional, enables Client.REST
	Token            string // JWT for hello
	User             string // display name used when the server runs without JWT
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	ReadLimit        int64 // max frame size in bytes, 0 keeps the websocket default
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadLimit:        1 << 20,
	}
}

// Validate reports configuration problems before dialing.
func (c Config) Validate() error {
	if c.URL == "" {
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	if c.HandshakeTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return NewError(ErrorInvalidConfig, "negative timeout")
	}
	if c.ReadLimit < 0 {
		return NewError(ErrorInvalidConfig, "negative read limit")
	}
	return nil
}
