package component

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeDevice struct {
	state State
}

func (f *fakeDevice) Meta() Metadata { return Metadata{Name: "fake", Type: "forwarder"} }

func (f *fakeDevice) Health() HealthStatus { return HealthStatus{Healthy: f.state == StateRunning} }

func (f *fakeDevice) DataFlow() FlowMetrics { return FlowMetrics{} }

func (f *fakeDevice) Init(context.Context) error {
	f.state = StateRunning
	return nil
}

func (f *fakeDevice) Destroy() error {
	f.state = StateStopped
	return nil
}

func (f *fakeDevice) State() State { return f.state }

type passive struct{}

func (passive) Meta() Metadata { return Metadata{} }

func (passive) Health() HealthStatus { return HealthStatus{} }

func (passive) DataFlow() FlowMetrics { return FlowMetrics{} }

func TestState_String(t *testing.T) {
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestIsDevice(t *testing.T) {
	dev := &fakeDevice{}
	assert.True(t, IsDevice(dev))
	assert.False(t, IsDevice(passive{}))

	assert.NoError(t, dev.Init(context.Background()))
	assert.True(t, dev.Health().Healthy)
	assert.NoError(t, dev.Destroy())
	assert.Equal(t, StateStopped, dev.State())
}
