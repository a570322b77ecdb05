package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docqa/internal/config"
)

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:          "docqa",
		Short:        "Ask questions about your documents",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (defaults to ./config.yaml or ~/.config/docqa/config.yaml)")

	load := func() (*config.AppConfig, error) {
		var (
			cfg *config.AppConfig
			err error
		)
		if cfgPath == "" {
			cfg, _, err = config.LoadDefault()
		} else {
			cfg, err = config.Load(cfgPath)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(newServeCmd(load), newChatCmd(load), newTranscriptCmd(load))
	return root
}

type configLoader func() (*config.AppConfig, error)
