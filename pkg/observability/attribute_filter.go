package observability

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// spanAttributePolicy decides which span attribute keys reach the exporter.
// Denied patterns win over allowed ones; keys matching neither are dropped.
var spanAttributePolicy = newKeyPolicy(
	[]string{"typedna.*", "dataset.*", "view.*", "report.*", "error", "error.*", "run_id"},
	// Author identities are personal data.
	[]string{"author", "author.*", "user.*", "email", "*.email", "view.authors"},
)

type keyPolicy struct {
	allow []glob.Glob
	deny  []glob.Glob
}

func newKeyPolicy(allow, deny []string) keyPolicy {
	compile := func(patterns []string) []glob.Glob {
		out := make([]glob.Glob, len(patterns))
		for i, p := range patterns {
			out[i] = glob.MustCompile(p)
		}

		return out
	}

	return keyPolicy{allow: compile(allow), deny: compile(deny)}
}

func matchAny(globs []glob.Glob, key string) bool {
	for _, g := range globs {
		if g.Match(key) {
			return true
		}
	}

	return false
}

// permits reports whether key may be exported.
func (p keyPolicy) permits(key string) bool {
	return !matchAny(p.deny, key) && matchAny(p.allow, key)
}

// attributeFilter strips span attributes the policy does not permit before
// handing spans to the delegate processor.
type attributeFilter struct {
	delegate sdktrace.SpanProcessor
	policy   keyPolicy
	logger   *slog.Logger
}

// NewAttributeFilter wraps delegate so exported spans only carry typedna,
// dataset, view, report and error attributes. Author identities never leave
// the process. A non-nil logger receives a warning per dropped key.
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{delegate: delegate, policy: spanAttributePolicy, logger: logger}
}

func (f *attributeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.delegate.OnStart(parent, s)
}

// OnEnd hands the delegate a read-only view with the dropped keys removed.
func (f *attributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.delegate.OnEnd(&filteredSpan{ReadOnlySpan: s, filter: f})
}

func (f *attributeFilter) Shutdown(ctx context.Context) error {
	err := f.delegate.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter shutdown: %w", err)
	}

	return nil
}

func (f *attributeFilter) ForceFlush(ctx context.Context) error {
	err := f.delegate.ForceFlush(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter flush: %w", err)
	}

	return nil
}

func (f *attributeFilter) keep(kv attribute.KeyValue) bool {
	if f.policy.permits(string(kv.Key)) {
		return true
	}

	if f.logger != nil {
		f.logger.Warn("span attribute blocked", "key", string(kv.Key))
	}

	return false
}

type filteredSpan struct {
	sdktrace.ReadOnlySpan

	filter *attributeFilter
}

func (s *filteredSpan) Attributes() []attribute.KeyValue {
	orig := s.ReadOnlySpan.Attributes()
	kept := make([]attribute.KeyValue, 0, len(orig))

	for _, kv := range orig {
		if s.filter.keep(kv) {
			kept = append(kept, kv)
		}
	}

	return kept
}
