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

package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// Request errors

	// ErrValidation is returned when a request is malformed or insufficient.
	// It aborts the whole request before any network activity.
	ErrValidation = errors.New("invalid request")

	// ErrPermission is returned when a bucket is not in the configured
	// allowlist or the remote store denies access.
	ErrPermission = errors.New("permission denied")

	// ErrNotFound is returned when an object or bucket does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransient is returned for network, timeout, and throttling
	// failures that are likely to succeed on retry.
	ErrTransient = errors.New("transient failure")

	// ErrSizeLimit is returned when an object's probed size exceeds the
	// caller's max_bytes limit. This is a policy rejection, not a
	// transport error.
	ErrSizeLimit = errors.New("size exceeds limit")

	// ErrMissingCapability is returned when an optional feature, such as
	// PDF text extraction, is unavailable in the running environment.
	ErrMissingCapability = errors.New("capability unavailable")
)

// transientPatterns are message fragments that indicate a transient
// network-level failure when no typed classification is available.
var transientPatterns = []string{
	"timeout",
	"i/o timeout",
	"connection refused",
	"connection reset",
	"connection closed",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"temporary failure",
	"unavailable",
	"deadline exceeded",
	"too many requests",
	"rate limit",
	"slow down",
}

// IsTransient reports whether err is likely to succeed on retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrTransient) {
		return true
	}

	// Permanent kinds are never transient, even when a transport layer
	// wrapped them with a retry-sounding message.
	if IsPermanent(err) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// IsPermanent reports whether err will not succeed on retry.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPermission) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrSizeLimit) ||
		errors.Is(err, ErrMissingCapability)
}

// WrapTransient wraps err as a transient failure. Errors that already
// carry a classification are returned as-is.
func WrapTransient(err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) || IsPermanent(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// WrapNotFound wraps err as a not-found failure.
func WrapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNotFound, err)
}

// WrapPermission wraps err as a permission failure.
func WrapPermission(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPermission) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPermission, err)
}
