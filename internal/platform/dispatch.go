package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"unidown/internal/logging"
)

// DefaultExtractorTimeout bounds a single extractor attempt.
const DefaultExtractorTimeout = 20 * time.Second

// unknownError is the message recorded for a panic value that is neither an
// error nor a string.
const unknownError = "Unknown error"

// Diagnostics is the failure variant of a dispatch.
type Diagnostics struct {
	Errors []ExtractError `json:"error"`
	// Matched is true when at least one extractor recognized the input.
	Matched bool `json:"matched,omitempty"`
	// NoExtractors is true when the registry was empty.
	NoExtractors bool `json:"noExtractors,omitempty"`
}

// Outcome is either the first successful VideoInfo (left) or the
// diagnostics collected while every extractor declined or failed (right).
type Outcome = mo.Either[VideoInfo, Diagnostics]

// Dispatcher tries the registered extractors in order until one succeeds.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
	log      logrus.FieldLogger
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTimeout sets the per-extractor timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.timeout = d
		}
	}
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(log logrus.FieldLogger) DispatcherOption {
	return func(dp *Dispatcher) {
		if log != nil {
			dp.log = log
		}
	}
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		timeout:  DefaultExtractorTimeout,
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the dispatcher iterates.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs every extractor in registry order and returns the first
// present result. Failures are recorded and the loop moves on; Dispatch
// itself never fails. Once ctx is cancelled no further extractor is tried.
func (d *Dispatcher) Dispatch(ctx context.Context, input string, ectx ExtractContext) Outcome {
	return d.run(ctx, d.registry.All(), input, ectx)
}

// DispatchTo runs only the extractor registered under name. An unknown name
// yields diagnostics with NoExtractors set.
func (d *Dispatcher) DispatchTo(ctx context.Context, name string, input string, ectx ExtractContext) Outcome {
	ext := d.registry.GetExtractorByName(name)
	if ext == nil {
		return d.run(ctx, nil, input, ectx)
	}
	return d.run(ctx, []StreamExtractor{ext}, input, ectx)
}

func (d *Dispatcher) run(ctx context.Context, extractors []StreamExtractor, input string, ectx ExtractContext) Outcome {
	log := logging.FromContext(ctx, d.log).WithField("component", "dispatch")

	diag := Diagnostics{
		Errors:       make([]ExtractError, 0),
		NoExtractors: len(extractors) == 0,
	}
	if diag.NoExtractors {
		log.Warn("no extractors registered")
		return mo.Right[VideoInfo](diag)
	}

	for _, ext := range extractors {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Debug("request cancelled, dispatch stopped")
			return mo.Right[VideoInfo](diag)
		}
		name := ext.Name()
		entry := log.WithField("extractor", name)
		start := time.Now()

		res, err := d.attempt(ctx, ext, input, ectx)
		elapsed := time.Since(start).String()
		if info, ok := res.Get(); err == nil && ok && info.VideoURL == "" {
			err = &ShapeError{Platform: name, Field: "video url"}
		}

		if err != nil {
			diag.Matched = true
			diag.Errors = append(diag.Errors, ExtractError{
				Extractor: name,
				Message:   err.Error(),
			})
			entry.WithError(err).WithField("elapsed", elapsed).Warn("extractor failed")
			continue
		}

		info, ok := res.Get()
		if !ok {
			entry.Debug("input not recognized")
			continue
		}
		if info.Headers == nil {
			info.Headers = map[string]string{}
		}

		entry.WithFields(logrus.Fields{
			"elapsed":   elapsed,
			"title":     info.Title,
			"has_audio": info.AudioURL != "",
		}).Info("extracted")
		return mo.Left[VideoInfo, Diagnostics](info)
	}

	return mo.Right[VideoInfo](diag)
}

type attemptResult struct {
	info mo.Option[VideoInfo]
	err  error
}

// attempt runs one extractor under the per-extractor timeout. An extractor
// that ignores its context is abandoned when the deadline passes; a result
// already delivered wins over the deadline.
func (d *Dispatcher) attempt(ctx context.Context, ext StreamExtractor, input string, ectx ExtractContext) (mo.Option[VideoInfo], error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan attemptResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- attemptResult{err: panicError(r)}
			}
		}()
		info, err := ext.Extract(ctx, input, ectx)
		done <- attemptResult{info: info, err: err}
	}()

	select {
	case res := <-done:
		return res.info, res.err
	case <-ctx.Done():
		select {
		case res := <-done:
			return res.info, res.err
		default:
		}
		return mo.None[VideoInfo](), ctx.Err()
	}
}

type panicMessage string

func (m panicMessage) Error() string { return string(m) }

// panicError converts a recovered panic value into an error carrying the
// message recorded in ExtractError.
func panicError(v any) error {
	switch p := v.(type) {
	case error:
		return p
	case string:
		return panicMessage(p)
	default:
		return panicMessage(unknownError)
	}
}

// Describe renders an outcome in one line for logs and the CLI.
func Describe(o Outcome) string {
	if info, ok := o.Left(); ok {
		return fmt.Sprintf("ok title=%q", info.Title)
	}
	diag, _ := o.Right()
	return fmt.Sprintf("not found errors=%d matched=%t", len(diag.Errors), diag.Matched)
}
