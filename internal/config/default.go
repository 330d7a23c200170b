package config

import (
	"strings"
	"time"
)

// Field is a configuration key with its factory default.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Env returns the environment variable that overrides this field.
func (f Field) Env() string {
	return strings.ToUpper(EnvPrefix + "_" + EnvKeyReplacer.Replace(f.Key))
}

// DefaultUserAgent is sent upstream unless a caller overrides it.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:144.0) Gecko/20100101 Firefox/144.0"

// Defaults lists every key with its default, in display order.
var Defaults = []Field{
	{"server.addr", ":8180", "HTTP listen address"},
	{"server.shutdown_timeout", 10 * time.Second, "Grace period for in-flight requests on shutdown"},
	{"http.timeout", 30 * time.Second, "Timeout for every upstream request"},
	{"http.impersonate", false, "Present a Chrome TLS fingerprint upstream"},
	{"http.proxy_url", "", "Outbound proxy for upstream requests"},
	{"http.headers", map[string]string{"User-Agent": DefaultUserAgent}, "Default headers sent upstream"},
	{"dispatch.extractor_timeout", 20 * time.Second, "Time limit for a single extractor attempt"},
	{"extractors.bilibili", true, "Enable the Bilibili extractor"},
	{"extractors.youtube", true, "Enable the YouTube extractor"},
	{"extractors.direct", true, "Enable the direct media link extractor"},
	{"extractors.opengraph", false, "Enable the OpenGraph page extractor"},
	{"extractors.ytdlp", false, "Enable the yt-dlp extractor (requires yt-dlp in PATH)"},
	{"log.level", "info", "Log level: trace, debug, info, warn, error"},
	{"log.json", false, "Emit logs as JSON"},
}
