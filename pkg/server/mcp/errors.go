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

package mcp

import "errors"

var (
	// Tool and parameter errors

	// ErrUnknownTool is returned when an unknown tool is requested.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrMissingParameter is returned when a required parameter is missing.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrInvalidParameter is returned when a parameter has an invalid value or type.
	ErrInvalidParameter = errors.New("invalid parameter")

	// Server errors

	// ErrRemoteRequired is returned when no remote store client is provided.
	ErrRemoteRequired = errors.New("remote store client is required")

	// ErrUnknownServerMode is returned when an unknown server mode is specified.
	ErrUnknownServerMode = errors.New("unknown server mode")

	// Resource errors

	// ErrInvalidResourceURI is returned when a resource URI is not of the
	// form s3://bucket/key.
	ErrInvalidResourceURI = errors.New("invalid resource uri")

	// ErrResourceSubscriptionsNotImplemented is returned when resource subscriptions are not yet implemented.
	ErrResourceSubscriptionsNotImplemented = errors.New("resource subscriptions not yet implemented")
)
