package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/bryanpaget/review-app-scanner/internal/helm"
	"github.com/bryanpaget/review-app-scanner/internal/runner"
)

type TestScenario struct {
	ReviewAppName   string          `yaml:"review-app-name"`
	ParentNamespace string          `yaml:"parent-namespace"`
	MaxAgeHours     int             `yaml:"max-age-hours"`
	CurrentTime     string          `yaml:"current-time"`
	Subnamespaces   []TestNamespace `yaml:"subnamespaces"`
}

type TestNamespace struct {
	Name      string `yaml:"name"`
	Updated   string `yaml:"updated"`
	HelmError bool   `yaml:"helm-error"`
}

func loadTestScenario(path string) (TestScenario, error) {
	var sc TestScenario
	data, err := os.ReadFile(path)
	if err != nil {
		return sc, fmt.Errorf("error reading test scenario: %w", err)
	}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return sc, fmt.Errorf("error parsing test scenario: %w", err)
	}
	return sc, nil
}

// scenarioRunner serves canned kubectl and helm responses derived from a
// loaded test scenario, replacing the real subprocess runner.
type scenarioRunner struct {
	scenario    TestScenario
	kubectlFail bool
}

func (r *scenarioRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	switch name {
	case "kubectl":
		if r.kubectlFail {
			return nil, &runner.ExternalToolError{
				Tool: "kubectl", Args: args, ExitCode: 1,
				Stderr: "Unable to connect to the server",
			}
		}
		return r.anchorList()
	case "helm":
		return r.helmList(args)
	default:
		return nil, fmt.Errorf("unexpected command %q", name)
	}
}

func (r *scenarioRunner) anchorList() ([]byte, error) {
	type item struct {
		Metadata map[string]string `json:"metadata"`
	}
	list := struct {
		Items []item `json:"items"`
	}{Items: []item{}}
	for _, ns := range r.scenario.Subnamespaces {
		list.Items = append(list.Items, item{Metadata: map[string]string{
			"name":      ns.Name,
			"namespace": r.scenario.ParentNamespace,
		}})
	}
	return json.Marshal(list)
}

func (r *scenarioRunner) helmList(args []string) ([]byte, error) {
	namespace := ""
	for i, arg := range args {
		if arg == "--namespace" && i+1 < len(args) {
			namespace = args[i+1]
		}
	}

	for _, ns := range r.scenario.Subnamespaces {
		if ns.Name != namespace {
			continue
		}
		if ns.HelmError {
			return nil, &runner.ExternalToolError{
				Tool: "helm", Args: args, ExitCode: 1,
				Stderr: "release: not found",
			}
		}
		return json.Marshal([]helm.Release{{
			Name:      namespace,
			Namespace: namespace,
			Updated:   ns.Updated,
			Status:    "deployed",
		}})
	}
	return []byte("[]"), nil
}
