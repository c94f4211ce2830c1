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

import "fmt"

// TextExtractor converts a document's bytes into plain text. The PDF
// implementation lives in pkg/pdf; it is wired in at construction so
// environments without the capability degrade to ErrMissingCapability
// instead of crashing.
type TextExtractor interface {
	// ExtractText reads the document's page sequence and returns the
	// per-page text concatenated with newline separators, in page order.
	ExtractText(data []byte) (string, error)
}

// ExtractDocumentText runs extractor over data. A nil extractor means
// the runtime lacks the extraction capability.
func ExtractDocumentText(extractor TextExtractor, data []byte) (string, error) {
	if extractor == nil {
		return "", fmt.Errorf("%w: document text extraction is not available in this build", ErrMissingCapability)
	}
	text, err := extractor.ExtractText(data)
	if err != nil {
		return "", fmt.Errorf("extract document text: %w", err)
	}
	return text, nil
}
