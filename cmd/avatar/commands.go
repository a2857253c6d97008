package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ds124wfegd/WB_L3/avatar/config"
	"github.com/ds124wfegd/WB_L3/avatar/internal/appServer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath, logLevel string

	root := &cobra.Command{
		Use:           "avatar",
		Short:         "Profile image upload service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.GetEnv("AVATAR_CONFIG_PATH", "./config"),
		"Directory containing config.yaml")
	root.PersistentFlags().StringVar(&logLevel, "log-level", config.GetEnv("AVATAR_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newSweepCmd(&configPath))
	return root
}

func loadConfig(path string) (*config.Config, error) {
	viperInstance, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}
	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	return cfg, nil
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve uploads over HTTP and run the janitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return appServer.NewServer(cfg)
		},
	}
}

func newSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one janitor pass over the storage directory and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			app, err := appServer.Build(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			report := app.Janitor.Sweep(context.Background())
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(report)
		},
	}
}
