// Package logger provides structured logging for respkv.
//
// This package configures log/slog:
//
//   - logger.go: handler construction and the process-wide level
//   - context.go: context-carried logger and connection ID
//   - payload.go: safe rendering of binary keys and values
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering, adjustable at runtime
//   - Binary payloads rendered quoted and truncated
package logger
