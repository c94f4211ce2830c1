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
	"path"
	"strings"
)

// Kind is the representation class of an object's bytes in a textual
// response. Classification never changes what bytes are fetched or
// stored, only how they are represented.
type Kind int

const (
	// KindBinary means the bytes must be transport-encoded (base64)
	// before inlining in a textual protocol.
	KindBinary Kind = iota

	// KindText means the bytes can be inlined as plain text.
	KindText

	// KindDocument means the object is a PDF the caller asked to have
	// extracted to text.
	KindDocument
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindDocument:
		return "document"
	default:
		return "binary"
	}
}

// textExtensions are key suffixes treated as text regardless of the
// declared content type.
var textExtensions = map[string]struct{}{
	".txt": {}, ".log": {}, ".json": {}, ".xml": {}, ".yml": {},
	".yaml": {}, ".md": {}, ".csv": {}, ".ini": {}, ".conf": {},
	".py": {}, ".js": {}, ".html": {}, ".css": {}, ".sh": {},
	".bash": {}, ".cfg": {}, ".properties": {}, ".ts": {}, ".tsx": {},
	".jsx": {}, ".sql": {}, ".env": {}, ".toml": {}, ".rst": {},
	".tex": {}, ".go": {},
}

// textMIMETypes are structured-text content types treated as text in
// addition to anything under text/.
var textMIMETypes = map[string]struct{}{
	"application/json":       {},
	"application/xml":        {},
	"application/javascript": {},
	"application/x-yaml":     {},
	"application/toml":       {},
	"application/sql":        {},
	"application/x-sh":       {},
}

// Classify decides how an object's bytes should be represented, from
// its key extension and declared content type. extractRequested marks
// that the caller asked for document text extraction.
func Classify(key, contentType string, extractRequested bool) Kind {
	if extractRequested && strings.EqualFold(path.Ext(key), ".pdf") {
		return KindDocument
	}
	if IsText(key, contentType) {
		return KindText
	}
	return KindBinary
}

// IsText reports whether an object should be treated as text, by key
// extension or declared content type.
func IsText(key, contentType string) bool {
	if _, ok := textExtensions[strings.ToLower(path.Ext(key))]; ok {
		return true
	}
	if contentType != "" {
		if strings.HasPrefix(contentType, "text/") {
			return true
		}
		if _, ok := textMIMETypes[contentType]; ok {
			return true
		}
	}
	return false
}
