// Package config holds the mesh client and relay configuration. Values come
// from the environment (optionally seeded from a .env file) and can be
// overridden by command-line flags.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores all parameters of a mesh client.
type Config struct {
	RelayURL         string        // WebSocket URL of the broadcast relay
	AnnounceInterval time.Duration // presence broadcast period
	AnnounceDelay    time.Duration // delay before the first announce
	StateInterval    time.Duration // PlayerState send period
	StatusInterval   time.Duration // debug status table period
	STUNServers      []string      // ICE servers used for candidate gathering
	Audio            bool          // attach an audio track to every peer connection
	Debug            bool
}

// RelayConfig stores the parameters of the development relay.
type RelayConfig struct {
	Listen string
	Debug  bool
}

// Defaults for every setting.
const (
	DefaultAnnounceInterval = 5 * time.Second
	DefaultAnnounceDelay    = 1 * time.Second
	DefaultStateInterval    = 50 * time.Millisecond
	DefaultStatusInterval   = 2 * time.Second
	DefaultSTUNServer       = "stun:stun.l.google.com:19302"
	DefaultRelayListen      = ":8080"
)

// LoadDotEnv loads a .env file from the working directory if there is one.
// It reports whether a file was loaded; a missing file is not an error.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load builds a client Config from the environment.
func Load() *Config {
	return &Config{
		RelayURL:         getEnv("MESH_RELAY_URL", ""),
		AnnounceInterval: getEnvAsDuration("MESH_ANNOUNCE_INTERVAL", DefaultAnnounceInterval),
		AnnounceDelay:    getEnvAsDuration("MESH_ANNOUNCE_DELAY", DefaultAnnounceDelay),
		StateInterval:    getEnvAsDuration("MESH_STATE_INTERVAL", DefaultStateInterval),
		StatusInterval:   getEnvAsDuration("MESH_STATUS_INTERVAL", DefaultStatusInterval),
		STUNServers:      getEnvAsList("MESH_STUN_SERVERS", []string{DefaultSTUNServer}),
		Audio:            getEnvAsBool("MESH_AUDIO", true),
		Debug:            getEnvAsBool("MESH_DEBUG", false),
	}
}

// LoadRelay builds a RelayConfig from the environment.
func LoadRelay() *RelayConfig {
	return &RelayConfig{
		Listen: getEnv("RELAY_LISTEN", DefaultRelayListen),
		Debug:  getEnvAsBool("RELAY_DEBUG", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
