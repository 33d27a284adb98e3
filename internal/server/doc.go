// Package server implements the HTTP status API over the build run
// ledger.
//
// This package provides:
//   - Read-only endpoints for recent runs and per-run step breakdowns
//   - Per-IP rate limiting to prevent abuse
//   - A health endpoint for monitoring
//   - Structured logging of all HTTP requests
//
// The API is intentionally read-only: builds are triggered by the
// deployment platform, never over HTTP.
package server
