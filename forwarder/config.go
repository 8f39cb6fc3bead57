package forwarder

import (
	"fmt"
	"time"

	"github.com/sjohnr/jzmq-sdk-sub001/errors"
	"github.com/sjohnr/jzmq-sdk-sub001/transport"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultDrainLimit   = 1000
)

// Config describes one forwarder's topology. Addresses are immutable once the
// forwarder is created.
type Config struct {
	Name string `json:"name" yaml:"name"`

	FrontendSubscribe string `json:"frontend_subscribe" yaml:"frontend_subscribe"`
	FrontendPublish   string `json:"frontend_publish" yaml:"frontend_publish"`
	ClusterPublish    string `json:"cluster_publish" yaml:"cluster_publish"`
	// ClusterPeer is the cluster-publish address cluster-subscribe connects
	// to. Pointing it at ClusterPublish self-wires the forwarder.
	ClusterPeer string `json:"cluster_peer" yaml:"cluster_peer"`

	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
	// DrainLimit caps how many messages one endpoint yields per iteration.
	DrainLimit int `json:"drain_limit" yaml:"drain_limit"`
	SendHWM    int `json:"send_hwm" yaml:"send_hwm"`
	RecvHWM    int `json:"recv_hwm" yaml:"recv_hwm"`

	// StrictFrames drops data messages that are not [topic][envelope] with a
	// well-formed envelope.
	StrictFrames bool `json:"strict_frames" yaml:"strict_frames"`
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.DrainLimit <= 0 {
		c.DrainLimit = DefaultDrainLimit
	}
	if c.SendHWM <= 0 {
		c.SendHWM = transport.DefaultSendHWM
	}
	if c.RecvHWM <= 0 {
		c.RecvHWM = transport.DefaultRecvHWM
	}
	return c
}

// Validate checks that every endpoint address is present and parseable.
func (c Config) Validate() error {
	endpoints := []struct {
		field, addr string
	}{
		{"frontend_subscribe", c.FrontendSubscribe},
		{"frontend_publish", c.FrontendPublish},
		{"cluster_publish", c.ClusterPublish},
		{"cluster_peer", c.ClusterPeer},
	}
	for _, ep := range endpoints {
		if ep.addr == "" {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s is required", errors.ErrMissingConfig, ep.field),
				"Config", "Validate", "endpoint validation")
		}
		if _, err := transport.ParseAddress(ep.addr); err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s: %v", errors.ErrInvalidConfig, ep.field, err),
				"Config", "Validate", "endpoint validation")
		}
	}
	if c.PollInterval < 0 || c.DrainLimit < 0 || c.SendHWM < 0 || c.RecvHWM < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: negative interval or limit", errors.ErrInvalidConfig),
			"Config", "Validate", "limit validation")
	}
	return nil
}
