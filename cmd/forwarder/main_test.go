package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjohnr/jzmq-sdk-sub001/config"
	"github.com/sjohnr/jzmq-sdk-sub001/forwarder"
	"github.com/sjohnr/jzmq-sdk-sub001/metric"
	"github.com/sjohnr/jzmq-sdk-sub001/transport"
)

func testConfig() *config.Config {
	return &config.Config{
		Log: config.LogConfig{Level: "info", Format: "json"},
		Forwarders: []config.ForwarderConfig{{
			Name:              "main",
			FrontendSubscribe: "inproc://main-in",
			FrontendPublish:   "inproc://main-out",
			ClusterPublish:    "inproc://main-cluster",
			ClusterPeer:       "inproc://main-cluster",
			PollInterval:      config.Duration(10 * time.Millisecond),
		}},
	}
}

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags([]string{"--config", "fwd.yaml", "--debug", "--log-format", "text"})
	require.NoError(t, err)
	assert.Equal(t, "fwd.yaml", cfg.ConfigPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	t.Setenv("JZF_METRICS_ADDR", "127.0.0.1:9999")
	cfg, err = parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.MetricsAddr)

	_, err = parseFlags([]string{"--no-such-flag"})
	assert.Error(t, err)
}

func TestValidateFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fwd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("forwarders: []\n"), 0600))

	ok := &CLIConfig{ConfigPath: path, ShutdownTimeout: time.Second}
	assert.NoError(t, validateFlags(ok))

	assert.Error(t, validateFlags(&CLIConfig{ConfigPath: path + ".missing", ShutdownTimeout: time.Second}))
	assert.Error(t, validateFlags(&CLIConfig{ConfigPath: path, LogLevel: "loud", ShutdownTimeout: time.Second}))
	assert.Error(t, validateFlags(&CLIConfig{ConfigPath: path, LogFormat: "xml", ShutdownTimeout: time.Second}))
	assert.NoError(t, validateFlags(&CLIConfig{ShowVersion: true}))
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, "warn", "json")
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, appName, entry["service"])
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var buf bytes.Buffer
	logger := setupLogger(&buf, "info", "text")

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(ctx, testConfig(), logger, time.Second)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestHealthFunc(t *testing.T) {
	logger := setupLogger(&bytes.Buffer{}, "error", "json")
	fwds, err := startForwarders(context.Background(), testConfig(), transport.NewContext(), metric.NewMetricsRegistry(), logger)
	require.NoError(t, err)
	require.Len(t, fwds, 1)

	check := healthFunc(fwds)
	healthy, _ := check()
	assert.True(t, healthy)

	stopForwarders(fwds, time.Second, logger)
	healthy, _ = check()
	assert.False(t, healthy)
	assert.Equal(t, "stopped", fwds[0].State().String())
}

func TestStartForwarders_RollsBackOnFailure(t *testing.T) {
	cfg := testConfig()
	second := cfg.Forwarders[0]
	second.Name = "clash"
	cfg.Forwarders = append(cfg.Forwarders, second)

	tctx := transport.NewContext()
	logger := setupLogger(&bytes.Buffer{}, "error", "json")
	_, err := startForwarders(context.Background(), cfg, tctx, nil, logger)
	require.Error(t, err)

	// The first forwarder released its endpoints, so the name is free again.
	fwd, err := forwarder.New(forwarder.Deps{Config: cfg.Forwarders[0].Forwarder(), Context: tctx})
	require.NoError(t, err)
	require.NoError(t, fwd.Init(context.Background()))
	require.NoError(t, fwd.Destroy())
}

func TestRegisterBuildInfo(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	require.NoError(t, registerBuildInfo(registry))
	assert.Error(t, registerBuildInfo(registry), "duplicate registration is rejected")
}
