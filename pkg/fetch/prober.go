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
	"fmt"
)

// Prober issues lightweight existence/size/type checks without
// transferring object bodies. Callers use it as a cheap precondition,
// for example size gating before a batch fetch.
type Prober struct {
	remote    Remote
	allowlist *Allowlist
	policy    RetryPolicy
}

// NewProber creates a prober over the given remote capability.
func NewProber(remote Remote, allowlist *Allowlist) *Prober {
	return &Prober{
		remote:    remote,
		allowlist: allowlist,
		policy:    RetryPolicy{},
	}
}

// Probe returns the object's metadata. Not-found outcomes stay
// distinguishable (errors.Is(err, ErrNotFound)) from transient failures
// so callers can decide whether to continue scanning other keys.
func (p *Prober) Probe(ctx context.Context, id Identity) (*Metadata, error) {
	if err := p.allowlist.Check(id.Bucket); err != nil {
		return nil, err
	}

	meta, err := withRetry(ctx, p.policy, func() (*Metadata, error) {
		return p.remote.Head(ctx, id.Bucket, id.Key)
	})
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", id, err)
	}
	return meta, nil
}
