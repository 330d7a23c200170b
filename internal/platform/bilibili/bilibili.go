// Package bilibili resolves Bilibili BV ids into DASH video and audio stream
// URLs through the public player API.
package bilibili

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"unidown/internal/httputil"
	"unidown/internal/logging"
	"unidown/internal/platform"
)

const (
	name = "bilibili"

	// DefaultAPIBase is the player API host.
	DefaultAPIBase = "https://api.bilibili.com"

	siteOrigin = "https://www.bilibili.com"

	// playurl query: 1080p, DASH with all codecs, 4K allowed, preview for guests.
	playQuery = "qn=80&fnval=4048&fourk=1&try_look=1"
)

var bvidPattern = regexp.MustCompile(`(?i)\bBV\w{10}\b`)

// Config holds Bilibili extractor configuration.
type Config struct {
	// APIBase overrides DefaultAPIBase. Tests point it at a local server.
	APIBase string
	// Headers are sent with every API call. Origin and Referer are always
	// replaced with the site's own values.
	Headers map[string]string
}

// Extractor implements platform.StreamExtractor for Bilibili.
type Extractor struct {
	client  *http.Client
	apiBase string
	headers map[string]string
	log     logrus.FieldLogger
}

// New creates a Bilibili extractor that issues requests through client.
func New(client *http.Client, cfg Config, log logrus.FieldLogger) *Extractor {
	base := cfg.APIBase
	if base == "" {
		base = DefaultAPIBase
	}
	return &Extractor{
		client:  client,
		apiBase: base,
		headers: httputil.MergeHeaders(cfg.Headers, map[string]string{
			"Origin":  siteOrigin,
			"Referer": siteOrigin + "/",
		}),
		log: log,
	}
}

// Name returns the platform name.
func (e *Extractor) Name() string {
	return name
}

// ExtractBVID returns the first BV id found anywhere in input.
func ExtractBVID(input string) (string, bool) {
	id := bvidPattern.FindString(input)
	return id, id != ""
}

// Extract resolves the first page of a BV video.
func (e *Extractor) Extract(ctx context.Context, input string, _ platform.ExtractContext) (mo.Option[platform.VideoInfo], error) {
	bvid, ok := ExtractBVID(input)
	if !ok {
		return mo.None[platform.VideoInfo](), nil
	}
	log := logging.FromContext(ctx, e.log).WithFields(logrus.Fields{
		"component": name,
		"bvid":      bvid,
	})

	page, err := e.firstPage(ctx, bvid)
	if err != nil {
		return mo.None[platform.VideoInfo](), fmt.Errorf("pagelist: %w", err)
	}
	log.WithField("cid", page.CID).Debug("resolved page")

	videoURL, audioURL, err := e.streams(ctx, bvid, page.CID)
	if err != nil {
		return mo.None[platform.VideoInfo](), fmt.Errorf("playurl: %w", err)
	}
	log.WithFields(logrus.Fields{
		"video_url": videoURL,
		"audio_url": audioURL,
	}).Debug("resolved streams")

	return mo.Some(platform.VideoInfo{
		Title:    page.Part,
		VideoURL: videoURL,
		AudioURL: audioURL,
		Headers:  map[string]string{"referer": siteOrigin},
	}), nil
}

func (e *Extractor) firstPage(ctx context.Context, bvid string) (page, error) {
	q := url.Values{"bvid": {bvid}}
	var resp pagelistResponse
	if err := httputil.GetJSON(ctx, e.client, e.apiBase+"/x/player/pagelist?"+q.Encode(), e.headers, &resp); err != nil {
		return page{}, err
	}
	if err := checkCode(resp.Code, resp.Message); err != nil {
		return page{}, err
	}
	if len(resp.Data) == 0 {
		return page{}, &platform.ShapeError{Platform: name, Field: "data[0]"}
	}
	first := resp.Data[0]
	if first.CID == 0 {
		return page{}, &platform.ShapeError{Platform: name, Field: "data[0].cid"}
	}
	return first, nil
}

func (e *Extractor) streams(ctx context.Context, bvid string, cid int64) (string, string, error) {
	q := url.Values{
		"bvid": {bvid},
		"cid":  {strconv.FormatInt(cid, 10)},
	}
	var resp playurlResponse
	if err := httputil.GetJSON(ctx, e.client, e.apiBase+"/x/player/playurl?"+playQuery+"&"+q.Encode(), e.headers, &resp); err != nil {
		return "", "", err
	}
	if err := checkCode(resp.Code, resp.Message); err != nil {
		return "", "", err
	}
	if resp.Data == nil || resp.Data.Dash == nil {
		return "", "", &platform.ShapeError{Platform: name, Field: "data.dash"}
	}

	video := firstURL(resp.Data.Dash.Video)
	if video == "" {
		return "", "", &platform.ShapeError{Platform: name, Field: "data.dash.video[0].baseUrl"}
	}
	audio := firstURL(resp.Data.Dash.Audio)
	if audio == "" {
		return "", "", &platform.ShapeError{Platform: name, Field: "data.dash.audio[0].baseUrl"}
	}
	return video, audio, nil
}

// checkCode rejects responses without a code and those whose code is non-zero.
func checkCode(code *int, message string) error {
	if code == nil {
		return &platform.ShapeError{Platform: name, Field: "code"}
	}
	if *code != 0 {
		return &platform.APIError{Platform: name, Code: *code, Message: message}
	}
	return nil
}

// firstURL returns the first stream's URL in the order the API listed them.
func firstURL(streams []dashStream) string {
	if len(streams) == 0 {
		return ""
	}
	if streams[0].BaseURL != "" {
		return streams[0].BaseURL
	}
	return streams[0].BaseURLSnake
}
