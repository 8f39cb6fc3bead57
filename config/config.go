package config

import (
	"encoding/json"
	"fmt"

	"github.com/sjohnr/jzmq-sdk-sub001/errors"
	"github.com/sjohnr/jzmq-sdk-sub001/forwarder"
)

// Config is the complete process configuration.
type Config struct {
	Log        LogConfig         `json:"log" yaml:"log"`
	Metrics    MetricsConfig     `json:"metrics" yaml:"metrics"`
	Forwarders []ForwarderConfig `json:"forwarders" yaml:"forwarders"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
}

// MetricsConfig configures the Prometheus and health endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
	Path    string `json:"path" yaml:"path"`
}

// ForwarderConfig is the file form of forwarder.Config.
type ForwarderConfig struct {
	Name              string   `json:"name" yaml:"name"`
	FrontendSubscribe string   `json:"frontend_subscribe" yaml:"frontend_subscribe"`
	FrontendPublish   string   `json:"frontend_publish" yaml:"frontend_publish"`
	ClusterPublish    string   `json:"cluster_publish" yaml:"cluster_publish"`
	ClusterPeer       string   `json:"cluster_peer" yaml:"cluster_peer"`
	PollInterval      Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
	DrainLimit        int      `json:"drain_limit,omitempty" yaml:"drain_limit,omitempty"`
	SendHWM           int      `json:"send_hwm,omitempty" yaml:"send_hwm,omitempty"`
	RecvHWM           int      `json:"recv_hwm,omitempty" yaml:"recv_hwm,omitempty"`
	StrictFrames      bool     `json:"strict_frames,omitempty" yaml:"strict_frames,omitempty"`
}

// Forwarder converts the file form into a forwarder.Config.
func (fc ForwarderConfig) Forwarder() forwarder.Config {
	return forwarder.Config{
		Name:              fc.Name,
		FrontendSubscribe: fc.FrontendSubscribe,
		FrontendPublish:   fc.FrontendPublish,
		ClusterPublish:    fc.ClusterPublish,
		ClusterPeer:       fc.ClusterPeer,
		PollInterval:      fc.PollInterval.Std(),
		DrainLimit:        fc.DrainLimit,
		SendHWM:           fc.SendHWM,
		RecvHWM:           fc.RecvHWM,
		StrictFrames:      fc.StrictFrames,
	}
}

// Validate checks the log settings and every forwarder. Forwarder names and
// bound addresses must be unique within the process.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "json", "text":
	default:
		return invalid("log.format %q", c.Log.Format)
	}

	if len(c.Forwarders) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: at least one forwarder is required", errors.ErrMissingConfig),
			"Config", "Validate", "forwarder validation")
	}

	names := make(map[string]bool)
	bound := make(map[string]string)
	for i, fc := range c.Forwarders {
		if fc.Name == "" {
			return invalid("forwarders[%d].name is required", i)
		}
		if names[fc.Name] {
			return invalid("duplicate forwarder name %q", fc.Name)
		}
		names[fc.Name] = true

		if err := fc.Forwarder().Validate(); err != nil {
			return errors.Wrap(err, "Config", "Validate", "forwarder "+fc.Name)
		}
		for _, addr := range []string{fc.FrontendSubscribe, fc.FrontendPublish, fc.ClusterPublish} {
			if owner, taken := bound[addr]; taken {
				return invalid("%s is bound by both %q and %q", addr, owner, fc.Name)
			}
			bound[addr] = fc.Name
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrInvalidConfig, fmt.Sprintf(format, args...)),
		"Config", "Validate", "config validation")
}

// String returns a JSON representation of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
