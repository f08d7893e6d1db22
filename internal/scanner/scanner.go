// internal/scanner/scanner.go
package scanner

import (
	"context"
	"regexp"
	"time"

	"github.com/go-logr/logr"
)

// ReleaseAgeLookup defines the interface for resolving the last-updated
// timestamp of the release deployed in a namespace (e.g. via helm).
type ReleaseAgeLookup interface {
	LastUpdated(ctx context.Context, namespace string) (time.Time, error)
}

// Scanner selects stale review app namespaces for deletion based on
// release age.
type Scanner struct {
	lookup ReleaseAgeLookup // Release metadata client
	log    logr.Logger      // Structured logger for all stages
	now    time.Time        // Time snapshot taken once at startup
	maxAge time.Duration    // Maximum allowed age before deletion
}

// New creates a Scanner with configured dependencies.
//
// Parameters:
// - lookup: release age lookup implementation
// - log: logger shared by the selection loop
// - now: single time snapshot used for every age comparison
// - maxAge: maximum time since the last release update
func New(lookup ReleaseAgeLookup, log logr.Logger, now time.Time, maxAge time.Duration) *Scanner {
	return &Scanner{
		lookup: lookup,
		log:    log,
		now:    now,
		maxAge: maxAge,
	}
}

// FilterReviewApps returns the subset of names that start with
// "review-<digits>-<app>". The match is anchored at the start only, so
// names with trailing characters after the app name still match. The app
// name is quoted so that regex metacharacters in it are matched literally.
func FilterReviewApps(names []string, app string, log logr.Logger) []string {
	log.Info("Finding review app namespaces", "app", app)

	pattern := regexp.MustCompile(`^review-[0-9]+-` + regexp.QuoteMeta(app))
	log.V(1).Info("Built filter pattern", "pattern", pattern.String())

	matched := make([]string, 0, len(names))
	for _, name := range names {
		if pattern.MatchString(name) {
			log.V(1).Info("Matched review app namespace", "namespace", name)
			matched = append(matched, name)
		}
	}
	log.Info("Found review app namespaces", "count", len(matched))
	return matched
}

// SelectStale iterates the filtered namespaces and returns those whose
// release age strictly exceeds the configured maximum. A failed lookup is
// logged with the namespace name and that namespace is skipped; the loop
// never reuses state from a prior iteration and never aborts the run.
func (s *Scanner) SelectStale(ctx context.Context, namespaces []string) []string {
	stale := make([]string, 0, len(namespaces))
	for _, ns := range namespaces {
		s.log.V(1).Info("Checking release age", "namespace", ns)

		updated, err := s.lookup.LastUpdated(ctx, ns)
		if err != nil {
			s.log.Error(err, "Error getting release for namespace, skipping", "namespace", ns)
			continue
		}

		age := s.now.Sub(updated)
		if age > s.maxAge {
			s.log.V(1).Info("Namespace exceeds maximum age, adding to delete list",
				"namespace", ns, "age", age.String())
			stale = append(stale, ns)
		}
	}
	return stale
}
