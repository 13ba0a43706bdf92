// Package mcp exposes the question-answering pipeline as an MCP
// (Model Context Protocol) server so AI assistants can query insurer policies.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")

// ErrMissingQuestion is returned when the ask tool is called without a question.
var ErrMissingQuestion = errors.New("mcp: question is required")
