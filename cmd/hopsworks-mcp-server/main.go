// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/mcp"
	"github.com/hopsworks-community/hopsworks-mcp-server/pkg/config"
)

var (
	version   = "0.1.0"
	buildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		role       string
		transport  string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:          "hopsworks-mcp-server",
		Short:        "MCP server exposing the Hopsworks feature store",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), configPath, role, transport, debug)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to configuration file")
	cmd.Flags().StringVar(&role, "role", "", "override the configured role (read-only, read-write, admin)")
	cmd.Flags().StringVar(&transport, "transport", "", "override the configured transport (stdio, sse, streamable-http)")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hopsworks-mcp-server version %s (built %s)\n", version, buildTime)
		},
	}
}

func runServer(ctx context.Context, configPath, role, transport string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if role != "" {
		cfg.Role = config.Role(role)
	}
	if transport != "" {
		cfg.Transport = transport
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := newLogger(debug)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := mcp.NewServer(cfg, log, version)
	if err != nil {
		return err
	}
	defer srv.Sessions().Close()

	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}

// newLogger builds a stderr logger. Stdout stays reserved for the
// stdio transport.
func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
