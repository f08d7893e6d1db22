// review-app-scanner finds stale review app namespaces and emits the
// matching PR numbers for a GitHub Actions cleanup matrix.
//
// Usage:
//
//	review-app-scanner <review-app-name> <namespace>
//	review-app-scanner foo dev --max-age 48 -d
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/bryanpaget/review-app-scanner/internal/ghactions"
	"github.com/bryanpaget/review-app-scanner/internal/helm"
	"github.com/bryanpaget/review-app-scanner/internal/hnc"
	"github.com/bryanpaget/review-app-scanner/internal/runner"
	"github.com/bryanpaget/review-app-scanner/internal/scanner"
)

var (
	version = "dev"

	// Overridable in tests so the pipeline runs against canned
	// responses and a fixed clock.
	timeNow   = time.Now
	newRunner = func(log logr.Logger) runner.Runner { return runner.New(log) }
)

type options struct {
	reviewAppName string
	namespace     string
	maxAge        int
	debug         bool
	fromAPI       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "review-app-scanner <review-app-name> <namespace>",
		Short: "Find stale review app namespaces for deletion",
		Long: `review-app-scanner lists the HNC sub-namespaces under a parent
namespace, keeps the ones named review-<PR number>-<app name>, and selects
those whose helm release has not been updated within the maximum age. The
selected PR numbers are appended as a matrix= line to the GitHub Actions
output file.`,
		Version:      version,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.reviewAppName = args[0]
			opts.namespace = args[1]
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.maxAge, "max-age", 72, "Max time since a review app was updated in hours")
	cmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "Print debug info")
	cmd.Flags().BoolVar(&opts.fromAPI, "from-api", false, "Discover sub-namespaces via the Kubernetes API instead of kubectl")
	return cmd
}

// loggerOpts pins the log level explicitly: dev mode alone would default
// to debug and emit every V(1) diagnostic line. Without --debug only
// informational progress lines appear.
func loggerOpts(debug bool) []zap.Opts {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	return []zap.Opts{zap.UseDevMode(true), zap.Level(level)}
}

func run(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := zap.New(loggerOpts(opts.debug)...)
	ctrl.SetLogger(logger)
	log := logger.WithName("scan")

	// One snapshot for every age comparison in this run.
	now := timeNow().UTC()

	cmdRunner := newRunner(log)

	lister, err := newLister(opts.fromAPI, cmdRunner, log)
	if err != nil {
		return err
	}

	subnamespaces, err := lister.Subnamespaces(ctx, opts.namespace)
	if err != nil {
		return fmt.Errorf("discovering sub-namespaces under %s: %w", opts.namespace, err)
	}

	candidates := scanner.FilterReviewApps(subnamespaces, opts.reviewAppName, log)

	log.Info("Searching for review apps not updated recently", "maxAgeHours", opts.maxAge)
	helmClient := helm.NewClient(cmdRunner, log)
	s := scanner.New(helmClient, log, now, time.Duration(opts.maxAge)*time.Hour)
	toBeDeleted := s.SelectStale(ctx, candidates)

	log.Info("Found review apps to be deleted", "count", len(toBeDeleted), "namespaces", toBeDeleted)

	if err := ghactions.WriteMatrix(toBeDeleted, log); err != nil {
		return fmt.Errorf("writing pipeline output: %w", err)
	}
	return nil
}

func newLister(fromAPI bool, cmdRunner runner.Runner, log logr.Logger) (hnc.Lister, error) {
	if !fromAPI {
		return hnc.NewKubectlLister(cmdRunner, log), nil
	}

	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("loading cluster config: %w", err)
	}
	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating dynamic client: %w", err)
	}
	core, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating Kubernetes client: %w", err)
	}
	return hnc.NewAPILister(dyn, core, log), nil
}
