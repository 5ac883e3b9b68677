// cmd/vallox/main.go
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tamzrod/vallox-bridge/internal/config"
	"github.com/tamzrod/vallox-bridge/internal/logging"
)

type globalFlags struct {
	config   string
	endpoint string
	serial   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:           "vallox",
		Short:         "Vallox/Helios ventilation bus bridge",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&g.config, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&g.endpoint, "endpoint", "", "host:port of the serial bridge (overrides config)")
	root.PersistentFlags().StringVar(&g.serial, "serial", "", "RS485 adapter device (overrides config)")

	root.AddCommand(
		newServeCmd(&g),
		newReadCmd(&g),
		newReadAllCmd(&g),
		newWriteCmd(&g),
		newRegistersCmd(&g),
		newTraceCmd(),
	)
	return root
}

// loadConfig loads, validates and normalizes the config. Without a file a
// minimal one is built from the transport flags.
func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg := &config.Config{Device: config.DeviceConfig{ID: "vallox"}}
	if g.config != "" {
		var err error
		if cfg, err = config.Load(g.config); err != nil {
			return nil, err
		}
	}

	switch {
	case g.endpoint != "":
		cfg.Device.Endpoint = g.endpoint
		cfg.Device.Serial = nil
	case g.serial != "":
		cfg.Device.Endpoint = ""
		cfg.Device.Serial = &config.SerialConfig{Address: g.serial}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func logger() zerolog.Logger {
	return logging.ConfigureRuntime()
}
