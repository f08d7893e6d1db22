package scanner

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// mockLookup implements ReleaseAgeLookup with canned timestamps per
// namespace; namespaces in failing report a simulated tool failure.
type mockLookup struct {
	updated map[string]time.Time
	failing map[string]bool
}

func (m *mockLookup) LastUpdated(ctx context.Context, namespace string) (time.Time, error) {
	if m.failing[namespace] {
		return time.Time{}, fmt.Errorf("helm list failed for %s", namespace)
	}
	return m.updated[namespace], nil
}

func TestFilterReviewApps(t *testing.T) {
	testCases := []struct {
		name  string
		names []string
		app   string
		want  []string
	}{
		{
			name:  "prefix anchored match",
			names: []string{"review-12-foo", "review-x-foo", "review-34-foobar", "foo-12-foo"},
			app:   "foo",
			want:  []string{"review-12-foo", "review-34-foobar"},
		},
		{
			name:  "no matches",
			names: []string{"default", "kube-system", "review-foo"},
			app:   "foo",
			want:  []string{},
		},
		{
			name:  "empty input",
			names: nil,
			app:   "foo",
			want:  []string{},
		},
		{
			name:  "metacharacters in app name are literal",
			names: []string{"review-1-f.o", "review-2-fxo"},
			app:   "f.o",
			want:  []string{"review-1-f.o"},
		},
		{
			name:  "digits required before app name",
			names: []string{"review--foo", "review-0-foo"},
			app:   "foo",
			want:  []string{"review-0-foo"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterReviewApps(tc.names, tc.app, logr.Discard())
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("FilterReviewApps(%v, %q) = %v, want %v",
					tc.names, tc.app, got, tc.want)
			}
		})
	}
}

func TestSelectStale(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	maxAge := 72 * time.Hour

	lookup := &mockLookup{
		updated: map[string]time.Time{
			"review-1-foo": now.Add(-73 * time.Hour), // past threshold
			"review-2-foo": now.Add(-72 * time.Hour), // exactly at threshold
			"review-3-foo": now.Add(-1 * time.Hour),  // fresh
		},
	}

	s := New(lookup, logr.Discard(), now, maxAge)
	stale := s.SelectStale(context.Background(), []string{"review-1-foo", "review-2-foo", "review-3-foo"})

	want := []string{"review-1-foo"}
	if !reflect.DeepEqual(stale, want) {
		t.Errorf("SelectStale = %v, want %v (exactly-equal age must not be selected)", stale, want)
	}
}

func TestSelectStaleSkipsFailedLookups(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	lookup := &mockLookup{
		updated: map[string]time.Time{
			"review-1-foo": now.Add(-100 * time.Hour),
			"review-3-foo": now.Add(-100 * time.Hour),
		},
		failing: map[string]bool{"review-2-foo": true},
	}

	var logBuf strings.Builder
	log := zap.New(zap.WriteTo(&logBuf), zap.UseDevMode(true))

	s := New(lookup, log, now, 72*time.Hour)
	stale := s.SelectStale(context.Background(), []string{"review-1-foo", "review-2-foo", "review-3-foo"})

	want := []string{"review-1-foo", "review-3-foo"}
	if !reflect.DeepEqual(stale, want) {
		t.Errorf("SelectStale = %v, want %v (failed lookup must be skipped, not abort)", stale, want)
	}

	if !strings.Contains(logBuf.String(), "review-2-foo") {
		t.Errorf("Error log should name the failing namespace, got: %s", logBuf.String())
	}
}

func TestSelectStaleIdempotent(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	lookup := &mockLookup{
		updated: map[string]time.Time{
			"review-1-foo": now.Add(-90 * time.Hour),
			"review-2-foo": now.Add(-10 * time.Hour),
		},
	}

	s := New(lookup, logr.Discard(), now, 72*time.Hour)
	namespaces := []string{"review-1-foo", "review-2-foo"}

	first := s.SelectStale(context.Background(), namespaces)
	second := s.SelectStale(context.Background(), namespaces)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Repeated runs with a fixed time snapshot diverged: %v vs %v", first, second)
	}
}
