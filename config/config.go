// Package config loads nowplaying-chat settings from a YAML file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/wirechat-nowplaying/conversation"
	"github.com/vovakirdan/wirechat-nowplaying/wirechat"
)

type Server struct {
	URL              string        `yaml:"url"`
	RESTBaseURL      string        `yaml:"rest_base_url"`
	Token            string        `yaml:"token"`
	User             string        `yaml:"user"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	// ReadTimeout of 0 leaves idle detection to the server's ping/pong.
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type Config struct {
	Server Server `yaml:"server"`
	// Conversation is the room joined on start.
	Conversation string `yaml:"conversation"`
	// Partner names the other participant in the screen title.
	Partner  string `yaml:"partner"`
	PageSize int    `yaml:"page_size"`
	// MatchFeed is a JSON-lines file of recognizer results, "-" for stdin.
	MatchFeed string `yaml:"match_feed"`
	LogLevel  string `yaml:"log_level"`
	LogFile   string `yaml:"log_file"`
}

// DefaultPath is ~/.nowplaying-chat.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nowplaying-chat.yaml"
	}
	return filepath.Join(home, ".nowplaying-chat.yaml")
}

func Default() Config {
	sdk := wirechat.DefaultConfig()
	return Config{
		Server: Server{
			URL:              "ws://localhost:8080/ws",
			RESTBaseURL:      "http://localhost:8080/api",
			HandshakeTimeout: sdk.HandshakeTimeout,
			WriteTimeout:     sdk.WriteTimeout,
		},
		PageSize: conversation.DefaultPageSize,
		LogLevel: "info",
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "write config")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "rename config")
	}
	return nil
}

func (c Config) Validate() error {
	if c.Conversation == "" {
		return errors.New("conversation is required")
	}
	if c.Server.RESTBaseURL == "" {
		return errors.New("server.rest_base_url is required to look up the conversation")
	}
	if c.PageSize < 1 {
		return errors.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	return errors.Wrap(c.Wirechat().Validate(), "server")
}

// Wirechat converts the server section to an SDK config.
func (c Config) Wirechat() wirechat.Config {
	sdk := wirechat.DefaultConfig()
	sdk.URL = c.Server.URL
	sdk.RESTBaseURL = c.Server.RESTBaseURL
	sdk.Token = c.Server.Token
	sdk.User = c.Server.User
	sdk.HandshakeTimeout = c.Server.HandshakeTimeout
	sdk.WriteTimeout = c.Server.WriteTimeout
	sdk.ReadTimeout = c.Server.ReadTimeout
	return sdk
}

// Title is the screen title.
func (c Config) Title() string {
	if c.Partner != "" {
		return "Conversation with " + c.Partner
	}
	return "Conversation " + c.Conversation
}
