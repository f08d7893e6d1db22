// Package hnc discovers sub-namespaces registered through the Hierarchical
// Namespace Controller. Each review app deployment anchors a sub-namespace
// under the parent namespace, so listing the anchors yields the candidate
// namespace names.
package hnc

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"github.com/bryanpaget/review-app-scanner/internal/runner"
)

// AnchorResource is the fully qualified resource name used with kubectl.
const AnchorResource = "subnamespaceanchors.hnc.x-k8s.io"

// AnchorGVR identifies the SubnamespaceAnchor custom resource for API access.
var AnchorGVR = schema.GroupVersionResource{
	Group:    "hnc.x-k8s.io",
	Version:  "v1alpha2",
	Resource: "subnamespaceanchors",
}

// Lister returns the names of sub-namespace anchors under a parent namespace.
type Lister interface {
	Subnamespaces(ctx context.Context, parent string) ([]string, error)
}

// KubectlLister discovers anchors by shelling out to kubectl, the default
// mode for CI runners that already carry a configured kubectl.
type KubectlLister struct {
	runner runner.Runner
	log    logr.Logger
}

// NewKubectlLister creates a lister backed by the given command runner.
func NewKubectlLister(r runner.Runner, log logr.Logger) *KubectlLister {
	return &KubectlLister{runner: r, log: log}
}

// Subnamespaces lists anchor names under parent. Any kubectl failure or
// unparseable output is fatal for the run: discovery is a precondition
// for every later stage.
func (l *KubectlLister) Subnamespaces(ctx context.Context, parent string) ([]string, error) {
	l.log.Info("Getting subnamespaces", "namespace", parent)

	out, err := l.runner.Run(ctx, "kubectl",
		"get", AnchorResource,
		"--namespace", parent,
		"-o", "json",
	)
	if err != nil {
		return nil, err
	}

	var list metav1.PartialObjectMetadataList
	if err := runner.DecodeJSON("kubectl", out, &list); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		names = append(names, item.Name)
	}
	l.log.V(1).Info("Discovered subnamespaces", "names", names)
	l.log.Info("Found subnamespaces", "count", len(names))
	return names, nil
}

// APILister discovers anchors through the Kubernetes API directly,
// for environments without a kubectl binary.
type APILister struct {
	dyn  dynamic.Interface
	core kubernetes.Interface
	log  logr.Logger
}

// NewAPILister creates a lister backed by the given API clients.
func NewAPILister(dyn dynamic.Interface, core kubernetes.Interface, log logr.Logger) *APILister {
	return &APILister{dyn: dyn, core: core, log: log}
}

// Subnamespaces lists anchor names under parent via the dynamic client.
// The parent namespace is looked up first so a missing parent surfaces
// as a clear error instead of an empty anchor list.
func (l *APILister) Subnamespaces(ctx context.Context, parent string) ([]string, error) {
	l.log.Info("Getting subnamespaces", "namespace", parent)

	if _, err := l.core.CoreV1().Namespaces().Get(ctx, parent, metav1.GetOptions{}); err != nil {
		return nil, fmt.Errorf("looking up parent namespace %s: %w", parent, err)
	}

	anchors, err := l.dyn.Resource(AnchorGVR).Namespace(parent).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing subnamespace anchors in %s: %w", parent, err)
	}

	names := make([]string, 0, len(anchors.Items))
	for _, item := range anchors.Items {
		names = append(names, item.GetName())
	}
	l.log.V(1).Info("Discovered subnamespaces", "names", names)
	l.log.Info("Found subnamespaces", "count", len(names))
	return names, nil
}
