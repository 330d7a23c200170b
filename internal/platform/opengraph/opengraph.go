// Package opengraph is a catch-all extractor reading og:video meta tags
// from arbitrary web pages. It must be registered after every
// platform-specific extractor.
package opengraph

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"unidown/internal/httputil"
	"unidown/internal/logging"
	"unidown/internal/platform"
)

const name = "opengraph"

// videoProperties are tried in order.
var videoProperties = []string{"og:video:secure_url", "og:video:url", "og:video"}

// Extractor implements platform.StreamExtractor for pages with OpenGraph video tags.
type Extractor struct {
	client  *http.Client
	headers map[string]string
	log     logrus.FieldLogger
}

// New creates an OpenGraph extractor. headers are sent with the page fetch.
func New(client *http.Client, headers map[string]string, log logrus.FieldLogger) *Extractor {
	return &Extractor{
		client: client,
		headers: httputil.MergeHeaders(headers, map[string]string{
			"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		}),
		log: log,
	}
}

// Name returns the platform name.
func (e *Extractor) Name() string {
	return name
}

func (e *Extractor) Extract(ctx context.Context, input string, _ platform.ExtractContext) (mo.Option[platform.VideoInfo], error) {
	page, err := httputil.ValidateURL(strings.TrimSpace(input))
	if err != nil {
		return mo.None[platform.VideoInfo](), nil
	}
	log := logging.FromContext(ctx, e.log).WithFields(logrus.Fields{
		"component": name,
		"url":       page.String(),
	})

	resp, err := httputil.Get(ctx, e.client, page.String(), e.headers)
	if err != nil {
		return mo.None[platform.VideoInfo](), fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(httputil.LimitBody(resp.Body))
	if err != nil {
		return mo.None[platform.VideoInfo](), fmt.Errorf("parsing page: %w", err)
	}

	video := ""
	for _, prop := range videoProperties {
		if v := metaContent(doc, prop); v != "" {
			video = v
			break
		}
	}
	if video == "" {
		return mo.None[platform.VideoInfo](), &platform.ShapeError{Platform: name, Field: "og:video"}
	}
	videoURL, err := page.Parse(video)
	if err != nil {
		return mo.None[platform.VideoInfo](), fmt.Errorf("og:video: %w", err)
	}

	title := metaContent(doc, "og:title")
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	log.WithField("video_url", videoURL.String()).Debug("found og:video")

	return mo.Some(platform.VideoInfo{
		Title:    title,
		VideoURL: videoURL.String(),
		Headers:  map[string]string{"referer": page.String()},
	}), nil
}

// metaContent returns the trimmed content of the first meta tag whose
// property (or name) equals prop.
func metaContent(doc *goquery.Document, prop string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, prop, prop)).First()
	content, _ := sel.Attr("content")
	return strings.TrimSpace(content)
}
