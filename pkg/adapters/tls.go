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

package adapters

import (
	"crypto/tls"
	"errors"
	"fmt"
)

// ErrInvalidCertificate is returned when a certificate is invalid.
var ErrInvalidCertificate = errors.New("invalid certificate")

// TLSConfig holds TLS configuration for the HTTP transport.
type TLSConfig struct {
	// CertFile is the path to the server certificate file (PEM format).
	CertFile string

	// KeyFile is the path to the server private key file (PEM format).
	KeyFile string

	// MinVersion specifies the minimum TLS version (default: TLS 1.2).
	MinVersion uint16
}

// Build constructs a *tls.Config from the configuration.
func (c *TLSConfig) Build() (*tls.Config, error) {
	if c.CertFile == "" || c.KeyFile == "" {
		return nil, fmt.Errorf("%w: certificate and key files are required", ErrInvalidCertificate)
	}

	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCertificate, err)
	}

	minVersion := c.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   minVersion,
	}, nil
}
