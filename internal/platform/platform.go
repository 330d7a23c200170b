// Package platform defines the extractor contract, the ordered extractor
// registry and the dispatch loop that resolves a pasted link into playable
// stream URLs.
package platform

import (
	"context"
	"net/url"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// VideoInfo is the normalized result of a successful extraction.
type VideoInfo struct {
	Title    string `json:"title"`
	VideoURL string `json:"videoUrl"`
	AudioURL string `json:"audioUrl,omitempty"`
	// Headers must be sent with any fetch of VideoURL or AudioURL,
	// otherwise the origin CDN rejects the request.
	Headers map[string]string `json:"headers"`
}

// ExtractError records one extractor failing during a dispatch.
type ExtractError struct {
	Extractor string `json:"extractor"`
	Message   string `json:"message"`
}

// ExtractContext carries ambient information about the inbound request.
type ExtractContext struct {
	RequestURL *url.URL
}

// StreamExtractor resolves inputs belonging to a single platform.
type StreamExtractor interface {
	// Name returns the platform name (e.g., "bilibili", "youtube")
	Name() string

	// Extract returns mo.None when the input is not recognized. It must not
	// perform network I/O in that case. An error is returned only for a
	// recognized input whose resolution failed.
	Extract(ctx context.Context, input string, ectx ExtractContext) (mo.Option[VideoInfo], error)
}

// Registry holds the registered platform extractors in dispatch order.
// It is populated at startup and only read afterwards.
type Registry struct {
	extractors []StreamExtractor
}

// NewRegistry creates a registry holding the given extractors in order.
func NewRegistry(extractors ...StreamExtractor) *Registry {
	r := &Registry{
		extractors: make([]StreamExtractor, 0, len(extractors)),
	}
	for _, ext := range extractors {
		r.Register(ext)
	}
	return r
}

// Register appends an extractor. Registration order is dispatch priority.
func (r *Registry) Register(extractor StreamExtractor) {
	r.extractors = append(r.extractors, extractor)
}

// All returns a copy of the registered extractors in dispatch order.
func (r *Registry) All() []StreamExtractor {
	out := make([]StreamExtractor, len(r.extractors))
	copy(out, r.extractors)
	return out
}

// Len returns the number of registered extractors.
func (r *Registry) Len() int {
	return len(r.extractors)
}

// GetExtractorByName finds an extractor by platform name.
func (r *Registry) GetExtractorByName(name string) StreamExtractor {
	for _, ext := range r.extractors {
		if ext.Name() == name {
			return ext
		}
	}
	return nil
}

// ListPlatforms returns all registered platform names.
func (r *Registry) ListPlatforms() []string {
	return lo.Map(r.extractors, func(ext StreamExtractor, _ int) string {
		return ext.Name()
	})
}
