package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chunibridge/chunibridge/bridge"
)

// fileConfig is the config.toml key mapping to bridge options. Durations use
// Go duration strings ("3s", "500us").
type fileConfig struct {
	SocketPath     string `toml:"socket_path"`
	ConnectTimeout string `toml:"connect_timeout"`
	ReceiveTimeout string `toml:"receive_timeout"`
	WriteTimeout   string `toml:"write_timeout"`
	StreamInterval string `toml:"stream_interval"`
	LEDQueueSize   int    `toml:"led_queue_size"`
}

// loadBridgeOptions builds the bridge option list from the optional TOML file
// and the command-line flags. Flags win over file keys; keys absent from the
// file keep the bridge defaults.
func loadBridgeOptions(flags *rootFlags) ([]bridge.Option, error) {
	var opts []bridge.Option

	if flags.configPath != "" {
		fileOpts, err := loadConfigFile(flags.configPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fileOpts...)
	}

	if flags.socketPath != "" {
		opts = append(opts, bridge.WithSocketPath(flags.socketPath))
	}

	return opts, nil
}

func loadConfigFile(path string) ([]bridge.Option, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var opts []bridge.Option

	if meta.IsDefined("socket_path") {
		opts = append(opts, bridge.WithSocketPath(raw.SocketPath))
	}

	durations := []struct {
		key   string
		value string
		opt   func(time.Duration) bridge.Option
	}{
		{key: "connect_timeout", value: raw.ConnectTimeout, opt: bridge.WithConnectTimeout},
		{key: "receive_timeout", value: raw.ReceiveTimeout, opt: bridge.WithReceiveTimeout},
		{key: "write_timeout", value: raw.WriteTimeout, opt: bridge.WithWriteTimeout},
		{key: "stream_interval", value: raw.StreamInterval, opt: bridge.WithStreamInterval},
	}

	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}

		val, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("load config: %s: %w", d.key, err)
		}
		opts = append(opts, d.opt(val))
	}

	if meta.IsDefined("led_queue_size") {
		opts = append(opts, bridge.WithLEDQueueSize(raw.LEDQueueSize))
	}

	return opts, nil
}
