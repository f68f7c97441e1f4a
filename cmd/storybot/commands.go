package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/m3rciful/storybot/core/buildinfo"
	corecmd "github.com/m3rciful/storybot/core/cmd"
	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/internal/app"
	"github.com/m3rciful/storybot/internal/config"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

type rootFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "storybot",
		Short:         "Telegram bot for cataloging stories and episodes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"Config file (default: $"+configEnvVar+" or "+defaultConfigPath+")")

	root.AddCommand(
		newServeCmd(flags),
		newMigrateCmd(flags),
		newSeedCmd(flags),
		newVersionCmd(),
	)
	return root
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return corecmd.Run(corecmd.Options{
				ConfigPath:        flags.configPath,
				ConfigEnvVar:      configEnvVar,
				DefaultConfigPath: defaultConfigPath,
				Context:           cmd.Context(),
				LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
					return config.Load(path)
				},
				Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
					return app.New(ctx, cfg.(*config.Config), app.Options{})
				},
			})
		},
	}
}

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply storage migrations (postgres schema, mongo indexes)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), flags, app.Options{SkipSeed: true})
		},
	}
}

func newSeedCmd(flags *rootFlags) *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert the configured categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), flags, app.Options{Demo: demo})
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "Also add a demo story with placeholder episodes")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "storybot "+buildinfo.String())
		},
	}
}

// runOnce bootstraps storage with opts (which migrates and seeds) and exits.
func runOnce(parent context.Context, flags *rootFlags, opts app.Options) error {
	path, err := corecmd.ResolveConfigPath(flags.configPath, configEnvVar, defaultConfigPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		return err
	}
	return a.Close()
}
