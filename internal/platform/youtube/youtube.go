package youtube

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"unidown/internal/logging"
	"unidown/internal/platform"
)

const name = "youtube"

var watchURLPattern = regexp.MustCompile(`(?:[?&]v=|/shorts/|youtu\.be/|/embed/|/live/)([0-9A-Za-z_-]{11})(?:[^0-9A-Za-z_-]|$)`)

// videoSource is the subset of *youtube.Client the extractor uses.
type videoSource interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamURLContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (string, error)
}

// Extractor implements platform.StreamExtractor for YouTube.
type Extractor struct {
	source videoSource
	log    logrus.FieldLogger
}

// New creates a YouTube extractor whose player API calls go through client.
func New(client *http.Client, log logrus.FieldLogger) *Extractor {
	return &Extractor{
		source: &youtube.Client{HTTPClient: client},
		log:    log,
	}
}

// Name returns the platform name.
func (e *Extractor) Name() string {
	return name
}

// VideoID returns the video id for a bare id or a YouTube watch, shorts,
// youtu.be, embed or live URL.
func VideoID(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}
	if isYouTubeID(trimmed) {
		return trimmed, true
	}
	if !strings.Contains(trimmed, "youtube.com") && !strings.Contains(trimmed, "youtu.be") {
		return "", false
	}
	m := watchURLPattern.FindStringSubmatch(trimmed)
	if len(m) != 2 {
		return "", false
	}
	return m[1], true
}

// Extract resolves the first video-only and audio-only adaptive formats,
// falling back to the first muxed format.
func (e *Extractor) Extract(ctx context.Context, input string, _ platform.ExtractContext) (mo.Option[platform.VideoInfo], error) {
	id, ok := VideoID(input)
	if !ok {
		return mo.None[platform.VideoInfo](), nil
	}
	log := logging.FromContext(ctx, e.log).WithFields(logrus.Fields{
		"component": name,
		"video_id":  id,
	})

	video, err := e.source.GetVideoContext(ctx, "https://www.youtube.com/watch?v="+id)
	if err != nil {
		return mo.None[platform.VideoInfo](), fmt.Errorf("fetching metadata: %w", err)
	}

	videoFmt, audioFmt := pickFormats(video.Formats)
	if videoFmt == nil {
		return mo.None[platform.VideoInfo](), &platform.ShapeError{Platform: name, Field: "formats"}
	}
	log.WithFields(logrus.Fields{
		"video_itag": videoFmt.ItagNo,
		"split":      audioFmt != nil,
	}).Debug("selected formats")

	videoURL, err := e.source.GetStreamURLContext(ctx, video, videoFmt)
	if err != nil {
		return mo.None[platform.VideoInfo](), fmt.Errorf("video stream url: %w", err)
	}

	info := platform.VideoInfo{
		Title:    video.Title,
		VideoURL: videoURL,
		Headers:  map[string]string{},
	}
	if audioFmt != nil {
		info.AudioURL, err = e.source.GetStreamURLContext(ctx, video, audioFmt)
		if err != nil {
			return mo.None[platform.VideoInfo](), fmt.Errorf("audio stream url: %w", err)
		}
	}
	return mo.Some(info), nil
}

// pickFormats returns the first video-only and first audio-only formats in
// the order YouTube listed them. Without that pair it returns the first
// muxed format and a nil audio format.
func pickFormats(formats youtube.FormatList) (*youtube.Format, *youtube.Format) {
	var videoOnly, audioOnly, muxed *youtube.Format
	for i := range formats {
		f := &formats[i]
		hasVideo := f.Width > 0 || strings.HasPrefix(f.MimeType, "video/")
		hasAudio := f.AudioChannels > 0 || strings.HasPrefix(f.MimeType, "audio/")
		switch {
		case hasVideo && hasAudio:
			if muxed == nil {
				muxed = f
			}
		case hasVideo:
			if videoOnly == nil {
				videoOnly = f
			}
		case hasAudio:
			if audioOnly == nil {
				audioOnly = f
			}
		}
	}
	if videoOnly != nil && audioOnly != nil {
		return videoOnly, audioOnly
	}
	return muxed, nil
}

func isYouTubeID(value string) bool {
	if len(value) != 11 {
		return false
	}
	var digit, upper, lower bool
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	// Plain 11-letter words are not ids.
	return digit || (upper && lower)
}
