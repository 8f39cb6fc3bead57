// Package config loads the forwarder process configuration.
//
// A configuration names the log settings, the metrics endpoint and one or more
// forwarders. Files may be JSON (.json) or YAML (.yaml, .yml); durations are
// written as strings such as "100ms".
//
// # Basic Usage
//
//	loader := config.NewLoader()
//	loader.AddLayer("/etc/jzf/base.yaml")
//	loader.AddLayer("/etc/jzf/site.yaml") // overrides base
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Layers are merged key by key; lists such as forwarders are replaced, not
// appended. Environment variables with the JZF_ prefix override file values
// after all layers are merged:
//
//	JZF_LOG_LEVEL, JZF_LOG_FORMAT, JZF_METRICS_ADDR
package config
