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

// TextContent is a text content item in a tool result.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewTextContent builds a text content item.
func NewTextContent(text string) TextContent {
	return TextContent{Type: "text", Text: text}
}

// TextResourceContents carries the textual body of a resource.
type TextResourceContents struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// BlobResourceContents carries the base64-encoded body of a binary
// resource.
type BlobResourceContents struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Blob     string `json:"blob"`
}

// EmbeddedResource wraps resource contents as a tool result content
// item.
type EmbeddedResource struct {
	Type     string `json:"type"`
	Resource any    `json:"resource"`
}

// NewEmbeddedResource builds an embedded resource content item.
func NewEmbeddedResource(resource any) EmbeddedResource {
	return EmbeddedResource{Type: "resource", Resource: resource}
}
