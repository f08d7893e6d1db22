// internal/helm/client.go
package helm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/bryanpaget/review-app-scanner/internal/runner"
)

// TimeFormat is passed to helm so that the updated field comes back as
// RFC3339 with an explicit UTC offset.
const TimeFormat = "2006-01-02T15:04:05Z07:00"

// ErrNoReleases indicates a namespace with no deployed releases, which
// means its age cannot be determined.
var ErrNoReleases = errors.New("no releases found")

// Release is one entry of `helm list -o json` output.
type Release struct {
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	Revision   string `json:"revision"`
	Updated    string `json:"updated"`
	Status     string `json:"status"`
	Chart      string `json:"chart"`
	AppVersion string `json:"app_version"`
}

// Client looks up release metadata by running the helm binary.
type Client struct {
	runner runner.Runner
	log    logr.Logger
}

// NewClient creates a Client backed by the given command runner.
func NewClient(r runner.Runner, log logr.Logger) *Client {
	return &Client{runner: r, log: log}
}

// LastUpdated returns the updated timestamp of the release deployed in
// namespace. A review app namespace holds exactly one release; when more
// are present the first is used and a warning is logged, when none are
// present ErrNoReleases is returned. All failures are scoped to the one
// namespace and handled by the caller's per-namespace boundary.
func (c *Client) LastUpdated(ctx context.Context, namespace string) (time.Time, error) {
	c.log.V(1).Info("Getting helm release", "namespace", namespace)

	out, err := c.runner.Run(ctx, "helm",
		"list",
		"--namespace", namespace,
		"-o", "json",
		"--time-format", TimeFormat,
	)
	if err != nil {
		return time.Time{}, err
	}

	var releases []Release
	if err := runner.DecodeJSON("helm", out, &releases); err != nil {
		return time.Time{}, err
	}

	switch {
	case len(releases) == 0:
		return time.Time{}, fmt.Errorf("%w in namespace %s", ErrNoReleases, namespace)
	case len(releases) > 1:
		c.log.Info("Expected exactly one release, using the first",
			"namespace", namespace, "count", len(releases))
	}

	updated, err := time.Parse(TimeFormat, releases[0].Updated)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing updated timestamp for %s: %w", namespace, err)
	}
	return updated, nil
}
