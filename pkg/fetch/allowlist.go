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
	"fmt"
	"strings"
)

// Allowlist restricts which buckets operations may target. It is
// constructed once at process start and read-only thereafter, so it is
// safe to share across concurrent operations. An empty allowlist
// permits all buckets.
type Allowlist struct {
	buckets []string
}

// NewAllowlist builds an allowlist from the given bucket names. Blank
// entries are dropped; order is preserved.
func NewAllowlist(buckets []string) *Allowlist {
	cleaned := make([]string, 0, len(buckets))
	for _, b := range buckets {
		b = strings.TrimSpace(b)
		if b != "" {
			cleaned = append(cleaned, b)
		}
	}
	return &Allowlist{buckets: cleaned}
}

// Empty reports whether no buckets are configured, meaning all buckets
// are permitted.
func (a *Allowlist) Empty() bool {
	return len(a.buckets) == 0
}

// Allows reports whether operations may target the given bucket.
func (a *Allowlist) Allows(bucket string) bool {
	if a.Empty() {
		return true
	}
	for _, b := range a.buckets {
		if b == bucket {
			return true
		}
	}
	return false
}

// Check returns ErrPermission when the allowlist is non-empty and does
// not contain bucket. Every component calls this before issuing a
// remote call that names a bucket.
func (a *Allowlist) Check(bucket string) error {
	if a.Allows(bucket) {
		return nil
	}
	return fmt.Errorf("%w: bucket %q not in configured bucket list", ErrPermission, bucket)
}

// Names returns a copy of the configured bucket names.
func (a *Allowlist) Names() []string {
	out := make([]string, len(a.buckets))
	copy(out, a.buckets)
	return out
}
