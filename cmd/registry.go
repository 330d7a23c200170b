package cmd

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"unidown/internal/config"
	"unidown/internal/httputil"
	"unidown/internal/platform"
	"unidown/internal/platform/bilibili"
	"unidown/internal/platform/direct"
	"unidown/internal/platform/opengraph"
	"unidown/internal/platform/youtube"
	"unidown/internal/platform/ytdlp"
	"unidown/pkg/deps"
)

// newHTTPClient builds the upstream client shared by extractors and the proxy.
func newHTTPClient(c *config.Config) (*http.Client, error) {
	return httputil.NewClient(httputil.Options{
		Timeout:     c.HTTP.Timeout,
		ProxyURL:    c.HTTP.ProxyURL,
		Impersonate: c.HTTP.Impersonate,
	})
}

// buildRegistry registers the enabled extractors in dispatch priority.
// Platform-specific extractors come first and catch-alls last.
func buildRegistry(c *config.Config, client *http.Client, checker *deps.Checker, log logrus.FieldLogger) *platform.Registry {
	headers := c.HTTP.DefaultHeaders()
	registry := platform.NewRegistry()

	if c.Extractors.Bilibili {
		registry.Register(bilibili.New(client, bilibili.Config{Headers: headers}, log))
	}
	if c.Extractors.YouTube {
		registry.Register(youtube.New(client, log))
	}
	if c.Extractors.Direct {
		registry.Register(direct.New())
	}
	if c.Extractors.YtDlp {
		if err := checker.CheckAndLog(log); err != nil {
			log.WithError(err).Warn("ytdlp extractor disabled")
		} else {
			registry.Register(ytdlp.New(nil, log))
		}
	}
	if c.Extractors.OpenGraph {
		registry.Register(opengraph.New(client, headers, log))
	}

	log.WithField("platforms", registry.ListPlatforms()).Debug("registry ready")
	return registry
}

// newDispatcher wires the registry, client and logger from configuration.
func newDispatcher(c *config.Config, log logrus.FieldLogger) (*platform.Dispatcher, *http.Client, error) {
	client, err := newHTTPClient(c)
	if err != nil {
		return nil, nil, err
	}
	registry := buildRegistry(c, client, deps.NewChecker(ytdlp.Binary), log)
	return platform.NewDispatcher(registry,
		platform.WithTimeout(c.Dispatch.ExtractorTimeout),
		platform.WithLogger(log),
	), client, nil
}
