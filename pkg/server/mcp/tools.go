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

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jeremyhahn/go-s3mcp/pkg/adapters"
	"github.com/jeremyhahn/go-s3mcp/pkg/fetch"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolRegistry manages available tools
type ToolRegistry struct {
	tools map[string]Tool
}

// NewToolRegistry creates a new tool registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Tool),
	}
}

// RegisterDefaultTools registers all default tools
func (r *ToolRegistry) RegisterDefaultTools() {
	r.tools["ListBuckets"] = Tool{
		Name:        "ListBuckets",
		Description: "List the S3 buckets this server is configured to expose.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"start_after": map[string]any{
					"type":        "string",
					"description": "Return only buckets whose name sorts after this value",
				},
			},
		},
	}

	r.tools["ListObjectsV2"] = Tool{
		Name:        "ListObjectsV2",
		Description: "List objects in an S3 bucket, optionally filtered by key prefix.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bucket_name": map[string]any{
					"type":        "string",
					"description": "Name of the bucket to list",
				},
				"prefix": map[string]any{
					"type":        "string",
					"description": "Key prefix to filter objects (empty lists all)",
				},
				"max_keys": map[string]any{
					"type":        "integer",
					"description": "Maximum number of keys to return (default 1000)",
				},
			},
			"required": []string{"bucket_name"},
		},
	}

	r.tools["HeadObject"] = Tool{
		Name:        "HeadObject",
		Description: "Get an object's metadata (content type, size, last modified) without downloading its body.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bucket_name": map[string]any{
					"type":        "string",
					"description": "Name of the bucket containing the object",
				},
				"key": map[string]any{
					"type":        "string",
					"description": "Key of the object",
				},
			},
			"required": []string{"bucket_name", "key"},
		},
	}

	r.tools["GetObject"] = Tool{
		Name:        "GetObject",
		Description: "Retrieve an object from S3. Text objects are returned inline, PDFs can have their text extracted, and binary objects are returned base64 encoded.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bucket_name": map[string]any{
					"type":        "string",
					"description": "Name of the bucket containing the object",
				},
				"key": map[string]any{
					"type":        "string",
					"description": "Key of the object to retrieve",
				},
				"max_retries": map[string]any{
					"type":        "integer",
					"description": "Maximum retrieval attempts for transient failures (default 3)",
				},
				"extract_text": map[string]any{
					"type":        "boolean",
					"description": "Extract plain text from PDF documents instead of returning raw bytes",
				},
			},
			"required": []string{"bucket_name", "key"},
		},
	}

	r.tools["DownloadObject"] = Tool{
		Name:        "DownloadObject",
		Description: "Download a single object from S3 to a local file path. Directory targets derive the file name from the object key.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bucket_name": map[string]any{
					"type":        "string",
					"description": "Name of the bucket containing the object",
				},
				"key": map[string]any{
					"type":        "string",
					"description": "Key of the object to download",
				},
				"output_path": map[string]any{
					"type":        "string",
					"description": "Local file or directory path to save the object to",
				},
				"max_retries": map[string]any{
					"type":        "integer",
					"description": "Maximum retrieval attempts for transient failures (default 3)",
				},
			},
			"required": []string{"bucket_name", "key", "output_path"},
		},
	}

	r.tools["GetObjectsBatch"] = Tool{
		Name:        "GetObjectsBatch",
		Description: "Download multiple objects from an S3 bucket to a local directory in one call. Accepts explicit keys, a key prefix, or both; failures are reported per key.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bucket_name": map[string]any{
					"type":        "string",
					"description": "Name of the bucket containing the objects",
				},
				"output_dir": map[string]any{
					"type":        "string",
					"description": "Local directory to save objects into (created if missing)",
				},
				"keys": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Explicit object keys to retrieve",
				},
				"prefix": map[string]any{
					"type":        "string",
					"description": "Key prefix whose objects are added to the batch",
				},
				"max_bytes": map[string]any{
					"type":        "integer",
					"description": "Skip objects larger than this many bytes (0 disables the limit)",
				},
				"max_retries": map[string]any{
					"type":        "integer",
					"description": "Maximum retrieval attempts per object for transient failures (default 3)",
				},
			},
			"required": []string{"bucket_name", "output_dir"},
		},
	}
}

// ListTools returns all registered tools
func (r *ToolRegistry) ListTools() []Tool {
	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	return tools
}

// GetTool retrieves a tool by name
func (r *ToolRegistry) GetTool(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// ToolExecutor executes tool calls against the retrieval engine.
type ToolExecutor struct {
	remote    fetch.Remote
	allowlist *fetch.Allowlist
	extractor fetch.TextExtractor
	workers   int
	maxKeys   int
	logger    adapters.Logger
}

// NewToolExecutor creates a new tool executor
func NewToolExecutor(remote fetch.Remote, allowlist *fetch.Allowlist, extractor fetch.TextExtractor, workers, maxKeys int, logger adapters.Logger) *ToolExecutor {
	if maxKeys <= 0 {
		maxKeys = fetch.DefaultListMaxKeys
	}
	return &ToolExecutor{
		remote:    remote,
		allowlist: allowlist,
		extractor: extractor,
		workers:   workers,
		maxKeys:   maxKeys,
		logger:    logger,
	}
}

// Execute executes a tool call, returning MCP content items.
func (e *ToolExecutor) Execute(ctx context.Context, toolName string, args map[string]any) ([]any, error) {
	switch toolName {
	case "ListBuckets":
		return e.executeListBuckets(ctx, args)
	case "ListObjectsV2":
		return e.executeListObjects(ctx, args)
	case "HeadObject":
		return e.executeHeadObject(ctx, args)
	case "GetObject":
		return e.executeGetObject(ctx, args)
	case "DownloadObject":
		return e.executeDownloadObject(ctx, args)
	case "GetObjectsBatch":
		return e.executeGetObjectsBatch(ctx, args)
	default:
		return nil, ErrUnknownTool
	}
}

// executeListBuckets executes the ListBuckets tool
func (e *ToolExecutor) executeListBuckets(ctx context.Context, args map[string]any) ([]any, error) {
	startAfter, _ := args["start_after"].(string)

	buckets, err := e.remote.ListBuckets(ctx, startAfter)
	if err != nil {
		return nil, err
	}

	return jsonContent(map[string]any{
		"count":   len(buckets),
		"buckets": buckets,
	})
}

// executeListObjects executes the ListObjectsV2 tool
func (e *ToolExecutor) executeListObjects(ctx context.Context, args map[string]any) ([]any, error) {
	bucket, ok := args["bucket_name"].(string)
	if !ok || bucket == "" {
		return nil, fmt.Errorf("%w: bucket_name", ErrMissingParameter)
	}

	prefix, _ := args["prefix"].(string)

	maxKeys := e.maxKeys
	if v, ok := intArg(args, "max_keys"); ok && v > 0 {
		maxKeys = v
	}

	objects, err := e.remote.ListObjects(ctx, bucket, prefix, maxKeys)
	if err != nil {
		return nil, err
	}

	return jsonContent(map[string]any{
		"bucket":  bucket,
		"prefix":  prefix,
		"count":   len(objects),
		"objects": objects,
	})
}

// executeHeadObject executes the HeadObject tool
func (e *ToolExecutor) executeHeadObject(ctx context.Context, args map[string]any) ([]any, error) {
	bucket, key, err := bucketKeyArgs(args)
	if err != nil {
		return nil, err
	}

	prober := fetch.NewProber(e.remote, e.allowlist)
	meta, err := prober.Probe(ctx, fetch.Identity{Bucket: bucket, Key: key})
	if err != nil {
		return nil, err
	}

	return jsonContent(map[string]any{
		"bucket":        bucket,
		"key":           key,
		"content_type":  meta.ContentType,
		"size_bytes":    meta.Size,
		"last_modified": meta.LastModified,
	})
}

// executeGetObject executes the GetObject tool
func (e *ToolExecutor) executeGetObject(ctx context.Context, args map[string]any) ([]any, error) {
	bucket, key, err := bucketKeyArgs(args)
	if err != nil {
		return nil, err
	}
	extractText, _ := args["extract_text"].(bool)

	fetcher := fetch.NewFetcher(e.remote, e.allowlist)
	result, err := fetcher.Fetch(ctx, fetch.Identity{Bucket: bucket, Key: key}, maxRetriesArg(args))
	if err != nil {
		return nil, err
	}

	uri := fmt.Sprintf("s3://%s/%s", bucket, key)

	switch fetch.Classify(key, result.Metadata.ContentType, extractText) {
	case fetch.KindText:
		return []any{NewTextContent(string(result.Data))}, nil
	case fetch.KindDocument:
		text, err := fetch.ExtractDocumentText(e.extractor, result.Data)
		if err != nil {
			return nil, err
		}
		return []any{NewTextContent(text)}, nil
	default:
		return []any{NewEmbeddedResource(BlobResourceContents{
			URI:      uri,
			MIMEType: result.Metadata.ContentType,
			Blob:     base64.StdEncoding.EncodeToString(result.Data),
		})}, nil
	}
}

// executeDownloadObject executes the DownloadObject tool
func (e *ToolExecutor) executeDownloadObject(ctx context.Context, args map[string]any) ([]any, error) {
	bucket, key, err := bucketKeyArgs(args)
	if err != nil {
		return nil, err
	}

	outputPath, ok := args["output_path"].(string)
	if !ok || outputPath == "" {
		return nil, fmt.Errorf("%w: output_path", ErrMissingParameter)
	}

	fetcher := fetch.NewFetcher(e.remote, e.allowlist)
	saved, err := fetcher.Save(ctx, fetch.Identity{Bucket: bucket, Key: key}, outputPath, maxRetriesArg(args))
	if err != nil {
		return nil, err
	}

	return jsonContent(saved)
}

// executeGetObjectsBatch executes the GetObjectsBatch tool
func (e *ToolExecutor) executeGetObjectsBatch(ctx context.Context, args map[string]any) ([]any, error) {
	bucket, ok := args["bucket_name"].(string)
	if !ok || bucket == "" {
		return nil, fmt.Errorf("%w: bucket_name", ErrMissingParameter)
	}

	outputDir, ok := args["output_dir"].(string)
	if !ok || outputDir == "" {
		return nil, fmt.Errorf("%w: output_dir", ErrMissingParameter)
	}

	req := &fetch.BatchRequest{
		Bucket:    bucket,
		OutputDir: outputDir,
	}

	if rawKeys, ok := args["keys"].([]any); ok {
		for _, raw := range rawKeys {
			key, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%w: keys must be strings", ErrInvalidParameter)
			}
			req.Keys = append(req.Keys, key)
		}
	}

	if prefix, ok := args["prefix"].(string); ok {
		req.Prefix = &prefix
	}

	if v, ok := intArg(args, "max_bytes"); ok {
		req.MaxBytes = int64(v)
	}
	if v, ok := intArg(args, "max_retries"); ok {
		req.MaxRetries = v
	}

	orchestrator := fetch.NewOrchestrator(e.remote, e.allowlist, &fetch.OrchestratorOptions{
		Workers:     e.workers,
		ListMaxKeys: e.maxKeys,
		Logger:      e.logger,
	})

	result, err := orchestrator.RetrieveBatch(ctx, req)
	if err != nil {
		return nil, err
	}

	return jsonContent(result)
}

// maxRetriesArg reads the optional max_retries argument; 0 selects
// the engine default.
func maxRetriesArg(args map[string]any) int {
	if v, ok := intArg(args, "max_retries"); ok {
		return v
	}
	return 0
}

// bucketKeyArgs extracts the common bucket_name and key arguments.
func bucketKeyArgs(args map[string]any) (string, string, error) {
	bucket, ok := args["bucket_name"].(string)
	if !ok || bucket == "" {
		return "", "", fmt.Errorf("%w: bucket_name", ErrMissingParameter)
	}
	key, ok := args["key"].(string)
	if !ok || key == "" {
		return "", "", fmt.Errorf("%w: key", ErrMissingParameter)
	}
	return bucket, key, nil
}

// intArg reads an integer argument that may arrive as a JSON number
// or a numeric string.
func intArg(args map[string]any, name string) (int, bool) {
	switch v := args[name].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// jsonContent renders a value as a single indented JSON text content
// item.
func jsonContent(v any) ([]any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []any{NewTextContent(string(data))}, nil
}
