package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sjohnr/jzmq-sdk-sub001/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const baseYAML = `
log:
  level: debug
forwarders:
  - name: site-a
    frontend_subscribe: tcp://*:6000
    frontend_publish: tcp://*:6001
    cluster_publish: tcp://*:4040
    cluster_peer: tcp://10.0.0.2:4040
    poll_interval: 50ms
    strict_frames: true
`

func TestLoader_LoadYAML(t *testing.T) {
	loader := NewLoader()
	loader.EnableValidation(true)

	cfg, err := loader.LoadFile(writeFile(t, "base.yaml", baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format, "defaults fill unset keys")
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)

	require.Len(t, cfg.Forwarders, 1)
	fc := cfg.Forwarders[0].Forwarder()
	assert.Equal(t, "site-a", fc.Name)
	assert.Equal(t, 50*time.Millisecond, fc.PollInterval)
	assert.Equal(t, "tcp://10.0.0.2:4040", fc.ClusterPeer)
	assert.True(t, fc.StrictFrames)
}

func TestLoader_LoadJSON(t *testing.T) {
	path := writeFile(t, "fwd.json", `{
		"metrics": {"enabled": false},
		"forwarders": [{
			"name": "solo",
			"frontend_subscribe": "inproc://in",
			"frontend_publish": "inproc://out",
			"cluster_publish": "tcp://127.0.0.1:5050",
			"cluster_peer": "tcp://127.0.0.1:5050",
			"poll_interval": 250000000
		}]
	}`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Forwarders[0].PollInterval.Std())
}

func TestLoader_LayersOverride(t *testing.T) {
	loader := NewLoader()
	loader.AddLayer(writeFile(t, "base.yaml", baseYAML))
	loader.AddLayer(writeFile(t, "override.json", `{"log": {"format": "text"}, "metrics": {"addr": ":9191"}}`))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level, "kept from base layer")
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, ":9191", cfg.Metrics.Addr)
	assert.Len(t, cfg.Forwarders, 1)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("JZF_LOG_LEVEL", "warn")
	t.Setenv("JZF_METRICS_ADDR", "127.0.0.1:9300")

	cfg, err := NewLoader().LoadFile(writeFile(t, "base.yaml", baseYAML))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:9300", cfg.Metrics.Addr)
}

func TestLoader_Errors(t *testing.T) {
	_, err := NewLoader().LoadFile(writeFile(t, "fwd.toml", "x = 1"))
	assert.True(t, errors.IsInvalid(err))

	_, err = NewLoader().LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = NewLoader().LoadFile(writeFile(t, "broken.json", `{"log": `))
	assert.Error(t, err)

	_, err = NewLoader().LoadFile(writeFile(t, "bad.yaml", "forwarders:\n  - poll_interval: soon\n"))
	assert.Error(t, err)

	loader := NewLoader()
	loader.EnableValidation(true)
	_, err = loader.LoadFile(writeFile(t, "empty.yaml", "log:\n  level: info\n"))
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{Forwarders: []ForwarderConfig{{
			Name:              "a",
			FrontendSubscribe: "inproc://a-in",
			FrontendPublish:   "inproc://a-out",
			ClusterPublish:    "tcp://127.0.0.1:4040",
			ClusterPeer:       "tcp://127.0.0.1:4040",
		}}}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"missing name", func(c *Config) { c.Forwarders[0].Name = "" }},
		{"duplicate name", func(c *Config) {
			dup := c.Forwarders[0]
			dup.FrontendSubscribe, dup.FrontendPublish, dup.ClusterPublish = "inproc://b-in", "inproc://b-out", "tcp://127.0.0.1:5050"
			c.Forwarders = append(c.Forwarders, dup)
		}},
		{"shared bind address", func(c *Config) {
			other := c.Forwarders[0]
			other.Name = "b"
			other.FrontendSubscribe, other.FrontendPublish = "inproc://b-in", "inproc://b-out"
			c.Forwarders = append(c.Forwarders, other)
		}},
		{"unparseable address", func(c *Config) { c.Forwarders[0].ClusterPeer = "4040" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestDuration_Decoding(t *testing.T) {
	var fc ForwarderConfig
	require.NoError(t, yaml.Unmarshal([]byte("poll_interval: 2s\n"), &fc))
	assert.Equal(t, 2*time.Second, fc.PollInterval.Std())

	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1m"`)))
	assert.Equal(t, time.Minute, d.Std())
	assert.Error(t, d.UnmarshalJSON([]byte(`true`)))

	out, err := Duration(1500 * time.Millisecond).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(out))
}

func TestValidateJSONDepth(t *testing.T) {
	assert.NoError(t, validateJSONDepth([]byte(`{"a": ["{", "[["]}`)))
	assert.Error(t, validateJSONDepth([]byte(`{"a": [1}`)))
	assert.Error(t, validateJSONDepth([]byte(`]`)))
	deep := make([]byte, 0, 2*(maxJSONDepth+1))
	for i := 0; i <= maxJSONDepth; i++ {
		deep = append(deep, '[')
	}
	for i := 0; i <= maxJSONDepth; i++ {
		deep = append(deep, ']')
	}
	assert.Error(t, validateJSONDepth(deep))
}
