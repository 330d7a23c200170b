// Package server exposes extraction and the fetch proxy over HTTP.
package server

// ExtractRequest is the request body for the extract endpoint.
type ExtractRequest struct {
	Input string `json:"input" binding:"required"`
}

// FetchRequest is the request body for the fetch proxy endpoint.
type FetchRequest struct {
	URL     string            `json:"url" binding:"required"`
	Headers map[string]string `json:"headers"`
	Method  string            `json:"method"`
	Body    string            `json:"body"`
}

// ErrorResponse is returned when a request is rejected before any work is done.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PlatformsResponse lists registered extractors in dispatch order.
type PlatformsResponse struct {
	Platforms []string `json:"platforms"`
}
