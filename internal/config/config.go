// Package config loads engine and backend settings from an optional
// orbitview.json file plus ORBITVIEW_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys understood by the configuration layer. Command-line flags on the
// daemons override the operational basics.
const (
	KeyBackendURL   = "backend.url"
	KeySatellite    = "viewer.satellite"
	KeyTrackMinutes = "viewer.track_minutes"
	KeyTrackStepS   = "viewer.track_step_s"
	KeyPollInterval = "viewer.poll_interval"
	KeyFrameMs      = "viewer.frame_ms"
	KeyFeedAddr     = "viewer.feed_addr"
	KeyMetricsAddr  = "metrics.addr"
	KeyCatalogPath  = "catalog.path"
	KeyObserverLat  = "observer.lat"
	KeyObserverLon  = "observer.lon"
	KeyListenAddr   = "backend.listen_addr"
	KeyTLETTL       = "backend.tle_ttl"
)

// Settings wraps a viper instance bound to the orbitview configuration
// sources.
type Settings struct {
	v *viper.Viper
}

// Load reads configuration, searching configDir (and /etc/orbitview when
// configDir is empty) for orbitview.json. A missing file is not an error;
// defaults and environment variables still apply.
func Load(configDir string) (*Settings, error) {
	v := viper.New()

	v.SetDefault(KeyBackendURL, "http://localhost:8000")
	v.SetDefault(KeySatellite, "iss")
	v.SetDefault(KeyTrackMinutes, 90)
	v.SetDefault(KeyTrackStepS, 30)
	v.SetDefault(KeyPollInterval, "5s")
	v.SetDefault(KeyFrameMs, 33)
	v.SetDefault(KeyFeedAddr, ":8080")
	v.SetDefault(KeyMetricsAddr, ":9090")
	v.SetDefault(KeyCatalogPath, "")
	v.SetDefault(KeyObserverLat, 52.52)
	v.SetDefault(KeyObserverLon, 13.405)
	v.SetDefault(KeyListenAddr, ":8000")
	v.SetDefault(KeyTLETTL, "6h")

	v.SetConfigName("orbitview")
	v.SetConfigType("json")
	if configDir != "" {
		v.AddConfigPath(configDir)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/orbitview/")
	}

	v.SetEnvPrefix("ORBITVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return &Settings{v: v}, nil
}

// GetString returns a string config value.
func (s *Settings) GetString(key string) string { return s.v.GetString(key) }

// GetInt returns an int config value.
func (s *Settings) GetInt(key string) int { return s.v.GetInt(key) }

// GetFloat64 returns a float config value.
func (s *Settings) GetFloat64(key string) float64 { return s.v.GetFloat64(key) }

// GetDuration returns a duration config value, accepting Go duration strings.
func (s *Settings) GetDuration(key string) time.Duration { return s.v.GetDuration(key) }

// Set overrides a value, typically from a command-line flag.
func (s *Settings) Set(key string, value any) { s.v.Set(key, value) }
