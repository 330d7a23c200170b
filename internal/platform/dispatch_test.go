package platform

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samber/mo"
)

// fakeExtractor recognizes inputs containing match and returns info or err.
type fakeExtractor struct {
	name  string
	match string
	info  VideoInfo
	err   error
	panic any
	block bool
	calls atomic.Int32
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) Extract(ctx context.Context, input string, _ ExtractContext) (mo.Option[VideoInfo], error) {
	f.calls.Add(1)
	if !strings.Contains(input, f.match) {
		return mo.None[VideoInfo](), nil
	}
	if f.panic != nil {
		panic(f.panic)
	}
	if f.block {
		select {}
	}
	if f.err != nil {
		return mo.None[VideoInfo](), f.err
	}
	return mo.Some(f.info), nil
}

func sample(title string) VideoInfo {
	return VideoInfo{
		Title:    title,
		VideoURL: "https://cdn.example.com/" + title + "/v.m4s",
		AudioURL: "https://cdn.example.com/" + title + "/a.m4s",
		Headers:  map[string]string{"referer": "https://www.example-platform.com"},
	}
}

func mustDiagnostics(t *testing.T, o Outcome) Diagnostics {
	t.Helper()
	diag, ok := o.Right()
	if !ok {
		info, _ := o.Left()
		t.Fatalf("expected diagnostics, got success %+v", info)
	}
	return diag
}

func mustInfo(t *testing.T, o Outcome) VideoInfo {
	t.Helper()
	info, ok := o.Left()
	if !ok {
		diag, _ := o.Right()
		t.Fatalf("expected success, got diagnostics %+v", diag)
	}
	return info
}

func TestDispatch_NoMatchYieldsEmptyErrorList(t *testing.T) {
	reg := NewRegistry(
		&fakeExtractor{name: "a", match: "BV"},
		&fakeExtractor{name: "b", match: "youtu"},
	)
	d := NewDispatcher(reg)

	diag := mustDiagnostics(t, d.Dispatch(context.Background(), "hello world", ExtractContext{}))

	if diag.Errors == nil {
		t.Fatal("errors must be an empty list, not nil")
	}
	if len(diag.Errors) != 0 {
		t.Errorf("expected no errors for declining extractors, got %v", diag.Errors)
	}
	if diag.Matched {
		t.Error("expected matched=false")
	}
	if diag.NoExtractors {
		t.Error("expected noExtractors=false")
	}
}

func TestDispatch_EmptyRegistry(t *testing.T) {
	d := NewDispatcher(NewRegistry())

	diag := mustDiagnostics(t, d.Dispatch(context.Background(), "hello world", ExtractContext{}))

	if len(diag.Errors) != 0 {
		t.Errorf("expected empty errors, got %v", diag.Errors)
	}
	if !diag.NoExtractors {
		t.Error("expected noExtractors=true for empty registry")
	}
}

func TestDispatch_FirstMatchWins(t *testing.T) {
	first := &fakeExtractor{name: "first", match: "BV", info: sample("first")}
	second := &fakeExtractor{name: "second", match: "BV", info: sample("second")}
	d := NewDispatcher(NewRegistry(first, second))

	info := mustInfo(t, d.Dispatch(context.Background(), "BV1aBcD56789", ExtractContext{}))

	if info.Title != "first" {
		t.Errorf("expected first extractor result, got %q", info.Title)
	}
	if second.calls.Load() != 0 {
		t.Errorf("second extractor should not run, ran %d times", second.calls.Load())
	}
}

func TestDispatch_SuccessIsIndependentOfOtherExtractors(t *testing.T) {
	target := &fakeExtractor{name: "target", match: "BV", info: sample("Sample")}
	alone := mustInfo(t, NewDispatcher(NewRegistry(target)).Dispatch(context.Background(), "BV1aBcD56789", ExtractContext{}))

	orders := [][]StreamExtractor{
		{&fakeExtractor{name: "x", match: "youtu"}, target},
		{target, &fakeExtractor{name: "y", match: "tiktok"}},
		{&fakeExtractor{name: "z", match: "nothing"}, &fakeExtractor{name: "w", match: "other"}, target},
	}
	for i, order := range orders {
		got := mustInfo(t, NewDispatcher(NewRegistry(order...)).Dispatch(context.Background(), "BV1aBcD56789", ExtractContext{}))
		if got.Title != alone.Title || got.VideoURL != alone.VideoURL || got.AudioURL != alone.AudioURL {
			t.Errorf("order %d: got %+v, want %+v", i, got, alone)
		}
	}
}

func TestDispatch_FailureIsRecordedAndLoopContinues(t *testing.T) {
	failing := &fakeExtractor{name: "bilibili", match: "BV", err: errors.New("playurl: unexpected status 412")}
	fallback := &fakeExtractor{name: "generic", match: "BV", info: sample("fallback")}
	d := NewDispatcher(NewRegistry(failing, fallback))

	info := mustInfo(t, d.Dispatch(context.Background(), "BV1aBcD56789", ExtractContext{}))

	if info.Title != "fallback" {
		t.Errorf("expected fallback result, got %q", info.Title)
	}
	if failing.calls.Load() != 1 {
		t.Errorf("failing extractor must not be retried, ran %d times", failing.calls.Load())
	}
}

func TestDispatch_NetworkErrorMessage(t *testing.T) {
	d := NewDispatcher(NewRegistry(
		&fakeExtractor{name: "bilibili", match: "BV", err: errors.New("timeout")},
	))

	diag := mustDiagnostics(t, d.Dispatch(context.Background(), "BV1aBcD56789", ExtractContext{}))

	want := []ExtractError{{Extractor: "bilibili", Message: "timeout"}}
	if len(diag.Errors) != 1 || diag.Errors[0] != want[0] {
		t.Fatalf("errors = %+v, want %+v", diag.Errors, want)
	}
	if !diag.Matched {
		t.Error("expected matched=true")
	}
}

func TestDispatch_ErrorsKeepRegistryOrder(t *testing.T) {
	d := NewDispatcher(NewRegistry(
		&fakeExtractor{name: "one", match: "x", err: errors.New("first")},
		&fakeExtractor{name: "two", match: "nope"},
		&fakeExtractor{name: "three", match: "x", err: errors.New("third")},
	))

	diag := mustDiagnostics(t, d.Dispatch(context.Background(), "x", ExtractContext{}))

	if len(diag.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(diag.Errors))
	}
	if diag.Errors[0].Extractor != "one" || diag.Errors[1].Extractor != "three" {
		t.Errorf("unexpected order: %+v", diag.Errors)
	}
}

func TestDispatch_PanicMessages(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"error value", errors.New("boom"), "boom"},
		{"string value", "bad shape", "bad shape"},
		{"other value", 42, "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(NewRegistry(&fakeExtractor{name: "p", match: "x", panic: tt.value}))
			diag := mustDiagnostics(t, d.Dispatch(context.Background(), "x", ExtractContext{}))
			if len(diag.Errors) != 1 {
				t.Fatalf("expected 1 error, got %d", len(diag.Errors))
			}
			if diag.Errors[0].Message != tt.want {
				t.Errorf("message = %q, want %q", diag.Errors[0].Message, tt.want)
			}
		})
	}
}

func TestDispatch_StalledExtractorTimesOut(t *testing.T) {
	stalled := &fakeExtractor{name: "stalled", match: "x", block: true}
	next := &fakeExtractor{name: "next", match: "x", info: sample("next")}
	d := NewDispatcher(NewRegistry(stalled, next), WithTimeout(50*time.Millisecond))

	start := time.Now()
	info := mustInfo(t, d.Dispatch(context.Background(), "x", ExtractContext{}))

	if info.Title != "next" {
		t.Errorf("expected next extractor result, got %q", info.Title)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("dispatch took too long: %v", time.Since(start))
	}
}

func TestDispatch_StalledExtractorRecordsDeadline(t *testing.T) {
	d := NewDispatcher(NewRegistry(&fakeExtractor{name: "stalled", match: "x", block: true}), WithTimeout(20*time.Millisecond))

	diag := mustDiagnostics(t, d.Dispatch(context.Background(), "x", ExtractContext{}))

	if len(diag.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(diag.Errors))
	}
	if diag.Errors[0].Message != context.DeadlineExceeded.Error() {
		t.Errorf("message = %q", diag.Errors[0].Message)
	}
}

func TestDispatch_CancelledRequestRecordsNothing(t *testing.T) {
	a := &fakeExtractor{name: "a", match: "BV"}
	b := &fakeExtractor{name: "b", match: "youtu"}
	d := NewDispatcher(NewRegistry(a, b))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 100; i++ {
		diag := mustDiagnostics(t, d.Dispatch(ctx, "hello world", ExtractContext{}))
		if len(diag.Errors) != 0 || diag.Matched {
			t.Fatalf("run %d: expected no errors and no match, got %+v", i, diag)
		}
	}
	if a.calls.Load() != 0 || b.calls.Load() != 0 {
		t.Errorf("extractors ran after cancellation: a=%d b=%d", a.calls.Load(), b.calls.Load())
	}
}

// cancelingExtractor cancels the request while declining the input.
type cancelingExtractor struct {
	cancel context.CancelFunc
}

func (c *cancelingExtractor) Name() string { return "canceling" }

func (c *cancelingExtractor) Extract(context.Context, string, ExtractContext) (mo.Option[VideoInfo], error) {
	c.cancel()
	return mo.None[VideoInfo](), nil
}

func TestDispatch_CancellationStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	next := &fakeExtractor{name: "next", match: "x", info: sample("next")}
	d := NewDispatcher(NewRegistry(&cancelingExtractor{cancel: cancel}, next))

	mustDiagnostics(t, d.Dispatch(ctx, "x", ExtractContext{}))

	if next.calls.Load() != 0 {
		t.Error("extractor after cancellation should not run")
	}
}

func TestDispatch_EmptyVideoURLIsShapeError(t *testing.T) {
	d := NewDispatcher(NewRegistry(&fakeExtractor{name: "broken", match: "x", info: VideoInfo{Title: "t"}}))

	diag := mustDiagnostics(t, d.Dispatch(context.Background(), "x", ExtractContext{}))

	if len(diag.Errors) != 1 || !strings.Contains(diag.Errors[0].Message, "video url") {
		t.Fatalf("unexpected errors: %+v", diag.Errors)
	}
}

func TestDispatch_NilHeadersBecomeEmptyMap(t *testing.T) {
	info := sample("t")
	info.Headers = nil
	d := NewDispatcher(NewRegistry(&fakeExtractor{name: "a", match: "x", info: info}))

	got := mustInfo(t, d.Dispatch(context.Background(), "x", ExtractContext{}))
	if got.Headers == nil {
		t.Error("headers must never be nil")
	}
}

func TestDispatch_Idempotent(t *testing.T) {
	d := NewDispatcher(NewRegistry(&fakeExtractor{name: "a", match: "BV", info: sample("Sample")}))

	first := mustInfo(t, d.Dispatch(context.Background(), "BV1aBcD56789", ExtractContext{}))
	second := mustInfo(t, d.Dispatch(context.Background(), "BV1aBcD56789", ExtractContext{}))
	if first.Title != second.Title || first.VideoURL != second.VideoURL {
		t.Errorf("dispatch not idempotent: %+v vs %+v", first, second)
	}
}

func TestDispatchTo(t *testing.T) {
	a := &fakeExtractor{name: "a", match: "x", info: sample("a")}
	b := &fakeExtractor{name: "b", match: "x", info: sample("b")}
	d := NewDispatcher(NewRegistry(a, b))

	info := mustInfo(t, d.DispatchTo(context.Background(), "b", "x", ExtractContext{}))
	if info.Title != "b" {
		t.Errorf("expected b, got %q", info.Title)
	}
	if a.calls.Load() != 0 {
		t.Error("extractor a should not run")
	}

	diag := mustDiagnostics(t, d.DispatchTo(context.Background(), "missing", "x", ExtractContext{}))
	if !diag.NoExtractors {
		t.Error("expected noExtractors for unknown platform")
	}
}
