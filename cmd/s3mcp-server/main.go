// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-s3mcp.
//
// go-s3mcp is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-s3mcp/pkg/adapters"
	"github.com/jeremyhahn/go-s3mcp/pkg/config"
	"github.com/jeremyhahn/go-s3mcp/pkg/fetch"
	"github.com/jeremyhahn/go-s3mcp/pkg/pdf"
	"github.com/jeremyhahn/go-s3mcp/pkg/s3client"
	mcpserver "github.com/jeremyhahn/go-s3mcp/pkg/server/mcp"
	"github.com/jeremyhahn/go-s3mcp/pkg/version"
)

var (
	flagMode    string
	flagAddr    string
	flagConfig  string
	flagTLSCert string
	flagTLSKey  string
)

var rootCmd = &cobra.Command{
	Use:     "s3mcp-server",
	Short:   "MCP server exposing S3 object retrieval tools",
	Long:    "s3mcp-server speaks JSON-RPC 2.0 over stdio or HTTP and exposes a configured set of S3 buckets to tool-calling clients.",
	Version: version.Get(),
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringVar(&flagMode, "mode", "stdio", "Server mode: stdio or http")
	rootCmd.Flags().StringVar(&flagAddr, "addr", ":8081", "HTTP server address (only for http mode)")
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "Path to config file")
	rootCmd.Flags().StringVar(&flagTLSCert, "tls-cert", "", "TLS certificate file (only for http mode)")
	rootCmd.Flags().StringVar(&flagTLSKey, "tls-key", "", "TLS private key file (only for http mode)")
}

func run(cmd *cobra.Command, args []string) error {
	// A .env file is optional; environment wins when both are set.
	_ = godotenv.Load()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := adapters.NewZerologLogger(os.Stderr, adapters.ParseLogLevel(cfg.LogLevel))

	var serverMode mcpserver.ServerMode
	switch flagMode {
	case "stdio":
		serverMode = mcpserver.ModeStdio
	case "http":
		serverMode = mcpserver.ModeHTTP
	default:
		return fmt.Errorf("invalid mode: %s (must be 'stdio' or 'http')", flagMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info(ctx, "Received signal, shutting down",
			adapters.Field{Key: "signal", Value: sig.String()})
		cancel()
	}()

	allowlist := fetch.NewAllowlist(cfg.Buckets)
	if allowlist.Empty() {
		logger.Warn(ctx, "No buckets configured; all buckets are reachable")
	} else {
		logger.Info(ctx, "Bucket access restricted",
			adapters.Field{Key: "buckets", Value: allowlist.Names()})
	}

	remote, err := s3client.New(ctx, &s3client.Opts{
		Region:            cfg.Region,
		Profile:           cfg.Profile,
		Endpoint:          cfg.Endpoint,
		AccessKey:         cfg.AccessKey,
		SecretKey:         cfg.SecretKey,
		MaxBuckets:        cfg.MaxBuckets,
		RequestsPerSecond: cfg.RequestsPerSecond,
		ConnectTimeout:    cfg.ConnectTimeout,
		ResponseTimeout:   cfg.ResponseTimeout,
	}, allowlist)
	if err != nil {
		return fmt.Errorf("create s3 client: %w", err)
	}

	serverConfig := &mcpserver.ServerConfig{
		Mode:        serverMode,
		HTTPAddress: flagAddr,
		Remote:      remote,
		Allowlist:   allowlist,
		Extractor:   pdf.New(),
		Workers:     cfg.Workers,
		MaxKeys:     cfg.MaxKeys,
		Logger:      logger,
	}

	if cfg.AuthToken != "" {
		serverConfig.Authenticator = adapters.NewBearerTokenAuthenticator(cfg.AuthToken)
	}
	if flagTLSCert != "" && flagTLSKey != "" {
		serverConfig.TLSConfig = &adapters.TLSConfig{
			CertFile: flagTLSCert,
			KeyFile:  flagTLSKey,
		}
	}

	server, err := mcpserver.NewServer(serverConfig)
	if err != nil {
		return fmt.Errorf("create mcp server: %w", err)
	}

	logger.Info(ctx, "Starting MCP server",
		adapters.Field{Key: "mode", Value: flagMode},
		adapters.Field{Key: "version", Value: version.Get()})

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	logger.Info(ctx, "MCP server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
