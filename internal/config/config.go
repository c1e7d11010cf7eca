// Package config provides centralized configuration management for the
// server process: defaults, an optional TOML overlay, and environment
// overrides. The simulation's fixed gameplay constants (tick rate, board
// geometry, costs) live in package game, not here.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds fixed-timestep simulation settings.
type SimConfig struct {
	TickRate   int // ticks per second; logged at startup only, lobbies tick at game.TickRateHz
	LobbyCount int // number of concurrent lobbies the registry manages
}

// DefaultSim returns the default simulation configuration. LobbyCount sizes
// the lobby registry; TickRate does not drive the tick loop.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:   30,
		LobbyCount: 8,
	}
}

// SimFromEnv returns simulation configuration with environment variable
// overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()
	applySimEnv(&cfg)
	return cfg
}

// applySimEnv overrides cfg's fields with any environment variables that
// are actually set, regardless of what already populated them.
func applySimEnv(cfg *SimConfig) {
	if tr, ok := getEnvIntIfSet("TICK_RATE"); ok {
		cfg.TickRate = tr
	}
	if lc, ok := getEnvIntIfSet("LOBBY_COUNT"); ok {
		cfg.LobbyCount = lc
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP/WebSocket server settings.
type ServerConfig struct {
	Port       int
	MaxPlayers int // loaded from MAX_PLAYERS or the TOML file; no connection limit reads it
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:       3000,
		MaxPlayers: 10_000,
	}
}

// ServerFromEnv returns server configuration with environment variable
// overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()
	applyServerEnv(&cfg)
	return cfg
}

// applyServerEnv overrides cfg's fields with any environment variables
// that are actually set, regardless of what already populated them.
func applyServerEnv(cfg *ServerConfig) {
	if p, ok := getEnvIntIfSet("PORT"); ok {
		cfg.Port = p
	}
	if mp, ok := getEnvIntIfSet("MAX_PLAYERS"); ok {
		cfg.MaxPlayers = mp
	}
}

// =============================================================================
// CREDENTIAL STORE CONFIGURATION
// =============================================================================

// CredentialConfig holds the out-of-scope credential store's operational
// settings.
type CredentialConfig struct {
	TokenTTL time.Duration
}

// DefaultCredential returns the default credential store configuration.
func DefaultCredential() CredentialConfig {
	return CredentialConfig{TokenTTL: 24 * time.Hour}
}

// CredentialFromEnv returns credential configuration with environment
// variable overrides.
func CredentialFromEnv() CredentialConfig {
	cfg := DefaultCredential()
	applyCredentialEnv(&cfg)
	return cfg
}

// applyCredentialEnv overrides cfg's fields with any environment
// variables that are actually set.
func applyCredentialEnv(cfg *CredentialConfig) {
	if ttlMin, ok := getEnvIntIfSet("TOKEN_TTL_MINUTES"); ok {
		cfg.TokenTTL = time.Duration(ttlMin) * time.Minute
	}
}

// =============================================================================
// OBSERVABILITY CONFIGURATION
// =============================================================================

// ObservabilityConfig holds debug/metrics server settings.
type ObservabilityConfig struct {
	Enabled   bool
	DebugPort int
}

// DefaultObservability returns the default observability configuration.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:   true,
		DebugPort: 6060,
	}
}

// ObservabilityFromEnv returns observability configuration with
// environment variable overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()
	applyObservabilityEnv(&cfg)
	return cfg
}

// applyObservabilityEnv overrides cfg's fields with any environment
// variables that are actually set.
func applyObservabilityEnv(cfg *ObservabilityConfig) {
	if os.Getenv("METRICS_DISABLED") == "true" {
		cfg.Enabled = false
	}
	if p, ok := getEnvIntIfSet("DEBUG_PORT"); ok {
		cfg.DebugPort = p
	}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim           SimConfig
	Server        ServerConfig
	Credential    CredentialConfig
	Observability ObservabilityConfig
}

// fileOverrides is the optional TOML overlay, loaded from CONFIG_FILE if
// set. Only the fields an operator actually wants to pin need appear in
// the file; anything absent keeps its env/default value.
type fileOverrides struct {
	Sim struct {
		TickRate   int `toml:"tick_rate"`
		LobbyCount int `toml:"lobby_count"`
	} `toml:"sim"`
	Server struct {
		Port       int `toml:"port"`
		MaxPlayers int `toml:"max_players"`
	} `toml:"server"`
}

// Load returns the complete configuration with precedence defaults <
// CONFIG_FILE TOML overlay < environment variables, in that order —
// an explicitly-set environment variable always wins over the file.
func Load() AppConfig {
	sim := DefaultSim()
	server := DefaultServer()
	cred := DefaultCredential()
	observability := DefaultObservability()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var overrides fileOverrides
		if _, err := toml.DecodeFile(path, &overrides); err == nil {
			if overrides.Sim.TickRate > 0 {
				sim.TickRate = overrides.Sim.TickRate
			}
			if overrides.Sim.LobbyCount > 0 {
				sim.LobbyCount = overrides.Sim.LobbyCount
			}
			if overrides.Server.Port > 0 {
				server.Port = overrides.Server.Port
			}
			if overrides.Server.MaxPlayers > 0 {
				server.MaxPlayers = overrides.Server.MaxPlayers
			}
		}
	}

	applySimEnv(&sim)
	applyServerEnv(&server)
	applyCredentialEnv(&cred)
	applyObservabilityEnv(&observability)

	return AppConfig{
		Sim:           sim,
		Server:        server,
		Credential:    cred,
		Observability: observability,
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// getEnvIntIfSet reports whether key is set in the environment to a
// valid integer, distinguishing "unset" from "explicitly zero" so
// callers can let a present-but-zero value win over a prior default or
// file override.
func getEnvIntIfSet(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}
