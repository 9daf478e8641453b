package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Validate checks that cfg can start a server.
func Validate(cfg Config) error {
	if cfg.Server.Address == "" {
		return errors.New("server.address must be set")
	}
	if cfg.Data.Source == "" {
		return errors.New("data.source must be set")
	}
	if cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 || cfg.Server.IdleTimeout < 0 {
		return errors.New("server timeouts must not be negative")
	}
	for name, hash := range cfg.Auth.Users {
		if strings.TrimSpace(name) == "" {
			return errors.New("auth.users contains an empty username")
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return fmt.Errorf("auth.users.%s must be a bcrypt hash (see momoctl hash-password): %w", name, err)
		}
	}
	if cfg.Events.NATSURL != "" && cfg.Events.Subject == "" {
		return errors.New("events.subject must be set when events.nats_url is set")
	}
	if cfg.Events.Workers < 0 || cfg.Events.Buffer < 0 {
		return errors.New("events.workers and events.buffer must not be negative")
	}
	return nil
}
