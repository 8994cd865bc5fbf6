// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads cmd/p3gatewayd's process-wide YAML configuration,
// in the style of nishisan-dev-n-backup's internal/config: a typed struct
// with yaml tags, a single Load function that reads and parses the file
// (no further validation), and duration fields expressed in milliseconds on the wire
// (matching spec §6.5's key names).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"code.vintagenet.io/p3"
)

// Config mirrors the process-wide recognized options spec §6.5 documents,
// plus the ambient listener/logging settings a deployable daemon needs.
type Config struct {
	Listen  ListenConfig  `yaml:"listen"`
	Pacer   PacerConfig   `yaml:"pacer"`
	Upload  UploadConfig  `yaml:"upload"`
	Logging LoggingConfig `yaml:"logging"`
	Admin   AdminConfig   `yaml:"admin"`
}

// ListenConfig is the TCP address cmd/p3gatewayd binds for P3 connections.
type ListenConfig struct {
	Address string `yaml:"address"`
}

// PacerConfig holds the §6.5 pacer.* recognized keys.
type PacerConfig struct {
	InterFrameDelayMS    int64 `yaml:"inter_frame_delay_ms"`
	MaxBurstFrames       int   `yaml:"max_burst_frames"`
	SoftThrottle         int   `yaml:"soft_throttle"`
	HardLimit            int   `yaml:"hard_limit"`
	HeartbeatIntervalMS  int64 `yaml:"heartbeat_interval_ms"`
	HeartbeatMaxAttempts int   `yaml:"heartbeat_max_attempts"`
}

// UploadConfig holds the §6.5 upload.* recognized key.
type UploadConfig struct {
	PhaseTimeoutMS int64 `yaml:"phase_timeout_ms"`
}

// LoggingConfig selects the logrus level cmd/p3gatewayd's logger uses.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// AdminConfig configures the optional local debug snapshot listener.
type AdminConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SocketPath string `yaml:"socket_path"`
}

// Load reads and parses the YAML file at path. Missing optional sections
// are left at their zero value; ToOptions fills in p3's own documented
// defaults for anything left unset.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &c, nil
}

// ToOptions converts the YAML-sourced pacer/upload settings into a
// p3.Options, leaving fields the YAML file didn't set at zero so
// p3.Options.setDefaults (invoked by p3.NewConnectionHandler) applies the
// documented defaults. InterFrameDelay is the exception: setDefaults keeps
// a zero delay, so an unset inter_frame_delay_ms yields no inter-frame
// delay rather than the 5ms default.
func (c *Config) ToOptions(logger p3.Logger) p3.Options {
	opts := p3.Options{
		MaxBurstFrames:       c.Pacer.MaxBurstFrames,
		SoftThrottle:         c.Pacer.SoftThrottle,
		HardLimit:            c.Pacer.HardLimit,
		HeartbeatMaxAttempts: c.Pacer.HeartbeatMaxAttempts,
		Logger:               logger,
	}
	if c.Pacer.InterFrameDelayMS > 0 {
		opts.InterFrameDelay = time.Duration(c.Pacer.InterFrameDelayMS) * time.Millisecond
	}
	if c.Pacer.HeartbeatIntervalMS > 0 {
		opts.HeartbeatInterval = time.Duration(c.Pacer.HeartbeatIntervalMS) * time.Millisecond
	}
	if c.Upload.PhaseTimeoutMS > 0 {
		opts.UploadPhaseTimeout = time.Duration(c.Upload.PhaseTimeoutMS) * time.Millisecond
	}
	return opts
}
