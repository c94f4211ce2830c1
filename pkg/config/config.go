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

// Package config loads the start-up configuration. Values are read
// once at process start and passed into the core as immutable
// construction parameters.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultMaxBuckets caps the number of buckets returned per
	// listing call.
	DefaultMaxBuckets = 5

	// DefaultMaxKeys caps the number of keys returned per object
	// listing call.
	DefaultMaxKeys = 1000

	// DefaultWorkers bounds concurrent batch fetches.
	DefaultWorkers = 4

	// DefaultConnectTimeout bounds connection establishment to the
	// remote store.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultResponseTimeout bounds the wait for response headers from
	// the remote store.
	DefaultResponseTimeout = 60 * time.Second
)

// Config holds the process configuration. It is immutable after Load.
type Config struct {
	// Region is the remote store region.
	Region string

	// Profile is an optional named credential profile.
	Profile string

	// Endpoint overrides the remote store endpoint, for S3-compatible
	// stores.
	Endpoint string

	// AccessKey and SecretKey are optional static credentials; when
	// empty the default credential chain applies.
	AccessKey string
	SecretKey string

	// Buckets is the bucket allowlist. Empty means all buckets are
	// permitted.
	Buckets []string

	// MaxBuckets caps bucket enumeration per listing call.
	MaxBuckets int

	// MaxKeys caps object enumeration per listing call.
	MaxKeys int

	// Workers bounds concurrent batch fetches.
	Workers int

	// RequestsPerSecond rate-limits remote calls; 0 disables.
	RequestsPerSecond float64

	// ConnectTimeout and ResponseTimeout configure the remote
	// transport.
	ConnectTimeout  time.Duration
	ResponseTimeout time.Duration

	// LogLevel names the minimum log level (debug, info, warn, error).
	LogLevel string

	// AuthToken, when set, requires a matching bearer token on the
	// HTTP transport.
	AuthToken string
}

// Load initializes the configuration using Viper.
// Configuration priority: env vars > config file > defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("region", "us-east-1")
	v.SetDefault("max-buckets", DefaultMaxBuckets)
	v.SetDefault("max-keys", DefaultMaxKeys)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("connect-timeout", DefaultConnectTimeout.String())
	v.SetDefault("response-timeout", DefaultResponseTimeout.String())
	v.SetDefault("log-level", "info")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".s3mcp")
		v.SetConfigType("yaml")
	}

	// The environment surface keeps the conventional AWS_* and S3_*
	// variable names rather than a single prefix.
	bindings := map[string]string{
		"region":              "AWS_REGION",
		"profile":             "AWS_PROFILE",
		"endpoint":            "S3_ENDPOINT",
		"access-key":          "S3_ACCESS_KEY_ID",
		"secret-key":          "S3_SECRET_ACCESS_KEY",
		"buckets":             "S3_BUCKETS",
		"max-buckets":         "S3_MAX_BUCKETS",
		"max-keys":            "S3_MAX_KEYS",
		"workers":             "S3_FETCH_WORKERS",
		"requests-per-second": "S3_REQUESTS_PER_SECOND",
		"connect-timeout":     "S3_CONNECT_TIMEOUT",
		"response-timeout":    "S3_RESPONSE_TIMEOUT",
		"log-level":           "S3MCP_LOG_LEVEL",
		"auth-token":          "S3MCP_AUTH_TOKEN",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; anything else is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	connectTimeout, err := time.ParseDuration(v.GetString("connect-timeout"))
	if err != nil {
		return nil, fmt.Errorf("parse connect-timeout: %w", err)
	}
	responseTimeout, err := time.ParseDuration(v.GetString("response-timeout"))
	if err != nil {
		return nil, fmt.Errorf("parse response-timeout: %w", err)
	}

	cfg := &Config{
		Region:            v.GetString("region"),
		Profile:           v.GetString("profile"),
		Endpoint:          v.GetString("endpoint"),
		AccessKey:         v.GetString("access-key"),
		SecretKey:         v.GetString("secret-key"),
		Buckets:           configuredBuckets(v.GetString("buckets")),
		MaxBuckets:        v.GetInt("max-buckets"),
		MaxKeys:           v.GetInt("max-keys"),
		Workers:           v.GetInt("workers"),
		RequestsPerSecond: v.GetFloat64("requests-per-second"),
		ConnectTimeout:    connectTimeout,
		ResponseTimeout:   responseTimeout,
		LogLevel:          v.GetString("log-level"),
		AuthToken:         v.GetString("auth-token"),
	}

	return cfg, nil
}

// configuredBuckets reads the allowlist from the S3_BUCKETS comma list
// or, when that is unset, the numbered S3_BUCKET_1, S3_BUCKET_2, ...
// variables.
func configuredBuckets(commaList string) []string {
	if commaList != "" {
		var buckets []string
		for _, b := range strings.Split(commaList, ",") {
			if b = strings.TrimSpace(b); b != "" {
				buckets = append(buckets, b)
			}
		}
		return buckets
	}

	var buckets []string
	for i := 1; ; i++ {
		bucket := os.Getenv(fmt.Sprintf("S3_BUCKET_%d", i))
		if bucket == "" {
			break
		}
		buckets = append(buckets, strings.TrimSpace(bucket))
	}
	return buckets
}
