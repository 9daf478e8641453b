// Package config loads the API server configuration from YAML with
// environment overrides.
package config

import (
	"time"
)

// ServerSection configures the HTTP listener.
type ServerSection struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DataSection points at the startup source (.xml or .json).
type DataSection struct {
	Source string `yaml:"source"`
}

// AuthSection holds the Basic auth realm and the credential table.
// Users maps username to a bcrypt hash; plaintext is rejected.
type AuthSection struct {
	Realm string            `yaml:"realm"`
	Users map[string]string `yaml:"users"`
}

// StoreSection controls payload schema handling.
type StoreSection struct {
	// StrictSchema rejects payload keys outside the transaction schema.
	// When false they are stored and echoed back unchanged.
	StrictSchema bool `yaml:"strict_schema"`
}

// EventsSection configures mutation event delivery.
type EventsSection struct {
	// NATSURL enables the NATS publisher; empty means log-only.
	NATSURL    string `yaml:"nats_url"`
	Subject    string `yaml:"subject"`
	Buffer     int    `yaml:"buffer"`
	Workers    int    `yaml:"workers"`
	MaxRetries uint64 `yaml:"max_retries"`
}

// ExportSection configures the snapshot written on shutdown.
type ExportSection struct {
	// OnShutdown is a sink destination such as "jsonfile:data/transactions.json".
	OnShutdown string `yaml:"on_shutdown"`
}

// LogSection configures the zerolog logger.
type LogSection struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Config is the complete server configuration.
type Config struct {
	Server ServerSection `yaml:"server"`
	Data   DataSection   `yaml:"data"`
	Auth   AuthSection   `yaml:"auth"`
	Store  StoreSection  `yaml:"store"`
	Events EventsSection `yaml:"events"`
	Export ExportSection `yaml:"export"`
	Log    LogSection    `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerSection{
			Address:         ":8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Data: DataSection{
			Source: "modified_sms_v2.xml",
		},
		Auth: AuthSection{
			Realm: "MoMo API",
		},
		Events: EventsSection{
			Subject:    "momo.transactions",
			Buffer:     100,
			Workers:    2,
			MaxRetries: 3,
		},
		Log: LogSection{
			Level:   "info",
			Console: true,
		},
	}
}
