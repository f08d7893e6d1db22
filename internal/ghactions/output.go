// Package ghactions writes pipeline results in the key=value format that
// GitHub Actions reads from the file named by the GITHUB_OUTPUT variable.
package ghactions

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
)

// OutputEnvVar names the environment variable holding the output file
// path. Its literal value doubles as the fallback filename when unset.
const OutputEnvVar = "GITHUB_OUTPUT"

type matrix struct {
	PRNumbers []string `json:"pr_numbers"`
}

// PRNumber extracts the pull request number token from a review app
// namespace name, the second dash-delimited segment. The token stays a
// string, taken verbatim with no numeric validation.
func PRNumber(namespace string) string {
	return strings.Split(namespace, "-")[1]
}

// WriteMatrix appends one line `matrix={"pr_numbers":[...]}` for the
// given deletion candidates to the output target. Appending rather than
// overwriting lets multiple steps in one job accumulate output lines.
// An empty candidate list still writes `matrix={"pr_numbers":[]}`.
func WriteMatrix(namespaces []string, log logr.Logger) error {
	prNumbers := make([]string, 0, len(namespaces))
	for _, ns := range namespaces {
		prNumbers = append(prNumbers, PRNumber(ns))
	}

	payload, err := json.Marshal(matrix{PRNumbers: prNumbers})
	if err != nil {
		return fmt.Errorf("marshaling matrix output: %w", err)
	}
	line := fmt.Sprintf("matrix=%s\n", payload)
	log.V(1).Info("Writing output", "line", strings.TrimSuffix(line, "\n"))

	path := os.Getenv(OutputEnvVar)
	if path == "" {
		path = OutputEnvVar
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening output file %s: %w", path, err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("writing output file %s: %w", path, err)
	}
	return f.Close()
}
