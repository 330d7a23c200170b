// Package direct recognizes links that already point at a media file.
package direct

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"unidown/internal/platform"
)

const name = "direct"

var mediaExtensions = []string{
	".mp4", ".webm", ".mov", ".mkv", ".m4v", ".flv", ".ts", ".m3u8", ".m4s",
	".mp3", ".m4a", ".aac", ".ogg", ".opus", ".wav", ".flac",
}

// Extractor passes media file URLs through unchanged.
type Extractor struct{}

// New creates a direct media extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the platform name.
func (e *Extractor) Name() string {
	return name
}

// Extract never performs I/O.
func (e *Extractor) Extract(_ context.Context, input string, _ platform.ExtractContext) (mo.Option[platform.VideoInfo], error) {
	u, err := url.Parse(strings.TrimSpace(input))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return mo.None[platform.VideoInfo](), nil
	}

	base := path.Base(u.Path)
	ext := strings.ToLower(path.Ext(base))
	if !lo.Contains(mediaExtensions, ext) {
		return mo.None[platform.VideoInfo](), nil
	}

	title := strings.TrimSuffix(base, path.Ext(base))
	if unescaped, err := url.PathUnescape(title); err == nil {
		title = unescaped
	}

	return mo.Some(platform.VideoInfo{
		Title:    title,
		VideoURL: u.String(),
		Headers:  map[string]string{"referer": u.Scheme + "://" + u.Host},
	}), nil
}
