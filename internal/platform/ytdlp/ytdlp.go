// Package ytdlp resolves arbitrary pages by shelling out to yt-dlp.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"unidown/internal/httputil"
	"unidown/internal/logging"
	"unidown/internal/platform"
)

const (
	name = "ytdlp"

	// Binary is the executable looked up in PATH.
	Binary = "yt-dlp"
)

// Runner executes yt-dlp with args and returns its stdout.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

// Extractor implements platform.StreamExtractor on top of the yt-dlp CLI.
type Extractor struct {
	run Runner
	log logrus.FieldLogger
}

// New creates a yt-dlp extractor. A nil run executes the real binary.
func New(run Runner, log logrus.FieldLogger) *Extractor {
	if run == nil {
		run = execRunner
	}
	return &Extractor{run: run, log: log}
}

// Name returns the platform name.
func (e *Extractor) Name() string {
	return name
}

// metadata is the subset of `yt-dlp -j` output the extractor reads.
type metadata struct {
	Title            string            `json:"title"`
	URL              string            `json:"url"`
	HTTPHeaders      map[string]string `json:"http_headers"`
	RequestedFormats []format          `json:"requested_formats"`
}

type format struct {
	URL         string            `json:"url"`
	VCodec      string            `json:"vcodec"`
	ACodec      string            `json:"acodec"`
	HTTPHeaders map[string]string `json:"http_headers"`
}

func (f format) hasVideo() bool { return f.VCodec != "" && f.VCodec != "none" }
func (f format) hasAudio() bool { return f.ACodec != "" && f.ACodec != "none" }

func (e *Extractor) Extract(ctx context.Context, input string, _ platform.ExtractContext) (mo.Option[platform.VideoInfo], error) {
	page, err := httputil.ValidateURL(strings.TrimSpace(input))
	if err != nil {
		return mo.None[platform.VideoInfo](), nil
	}
	log := logging.FromContext(ctx, e.log).WithField("component", name)

	args := []string{
		"--ignore-config",
		"--no-playlist",
		"--no-warnings",
		"--socket-timeout", "10",
		"-j",
		page.String(),
	}
	out, err := e.run(ctx, args...)
	if err != nil {
		return mo.None[platform.VideoInfo](), err
	}

	var meta metadata
	if err := json.Unmarshal(out, &meta); err != nil {
		return mo.None[platform.VideoInfo](), fmt.Errorf("failed to parse metadata: %w", err)
	}

	info := platform.VideoInfo{
		Title:   meta.Title,
		Headers: lo.Assign(map[string]string{}, meta.HTTPHeaders),
	}
	if len(meta.RequestedFormats) > 0 {
		if v, ok := lo.Find(meta.RequestedFormats, format.hasVideo); ok {
			info.VideoURL = v.URL
			info.Headers = lo.Assign(info.Headers, v.HTTPHeaders)
		}
		if a, ok := lo.Find(meta.RequestedFormats, func(f format) bool {
			return f.hasAudio() && !f.hasVideo()
		}); ok {
			info.AudioURL = a.URL
		}
	}
	if info.VideoURL == "" {
		info.VideoURL = meta.URL
		info.AudioURL = ""
	}
	if info.VideoURL == "" {
		return mo.None[platform.VideoInfo](), &platform.ShapeError{Platform: name, Field: "url"}
	}

	log.WithFields(logrus.Fields{
		"title": meta.Title,
		"split": info.AudioURL != "",
	}).Debug("yt-dlp resolved")
	return mo.Some(info), nil
}

func execRunner(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("yt-dlp failed: %w", err)
	}
	return out, nil
}
