// Command genschema generates JSON Schema reference docs from awsts's Go
// config and report structs. Run from the repository root:
//
//	go run ./cmd/genschema
//
// Output:
//
//	docs/schema/config-schema.json
//	docs/schema/report-schema.json
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/enri3l/aws-ts-sub005/internal/config"
	"github.com/enri3l/aws-ts-sub005/internal/repair"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "genschema: %v\n", err)
		os.Exit(1)
	}
}

// reportDoc mirrors the JSON document emitted by "awsts doctor --json".
// Duplicated here with plain fields because the runtime types use custom
// marshalers that the reflector cannot see through.
type reportDoc struct {
	Summary struct {
		TotalChecks   int    `json:"totalChecks"`
		PassedChecks  int    `json:"passedChecks"`
		WarningChecks int    `json:"warningChecks"`
		FailedChecks  int    `json:"failedChecks"`
		OverallStatus string `json:"overallStatus" jsonschema:"enum=pass,enum=warn,enum=fail"`
		ExecutionTime int64  `json:"executionTime" jsonschema:"description=Total run time in milliseconds"`
	} `json:"summary"`
	Results map[string]struct {
		Status      string         `json:"status" jsonschema:"enum=pass,enum=warn,enum=fail"`
		Message     string         `json:"message"`
		Details     map[string]any `json:"details,omitempty"`
		Remediation string         `json:"remediation,omitempty"`
		Duration    int64          `json:"duration" jsonschema:"description=Check execution time in milliseconds"`
	} `json:"results"`
	Repairs *repair.Batch `json:"repairs,omitempty"`
}

func run() error {
	// Validate we're at repo root.
	if _, err := os.Stat("go.mod"); err != nil {
		return fmt.Errorf("must run from repository root (go.mod not found)")
	}
	if err := os.MkdirAll("docs/schema", 0o755); err != nil {
		return fmt.Errorf("creating docs/schema: %w", err)
	}

	cfgReflector := &jsonschema.Reflector{FieldNameTag: "toml"}
	if err := cfgReflector.AddGoComments("github.com/enri3l/aws-ts-sub005", "."); err != nil {
		return fmt.Errorf("extracting Go comments: %w", err)
	}
	if err := writeSchema("docs/schema/config-schema.json",
		cfgReflector.Reflect(&config.Settings{})); err != nil {
		return err
	}

	reportReflector := &jsonschema.Reflector{}
	if err := writeSchema("docs/schema/report-schema.json",
		reportReflector.Reflect(&reportDoc{})); err != nil {
		return err
	}

	fmt.Println("Generated:")
	fmt.Println("  docs/schema/config-schema.json")
	fmt.Println("  docs/schema/report-schema.json")
	return nil
}

// writeSchema writes a JSON Schema to a file using atomic write (temp + rename).
func writeSchema(path string, s *jsonschema.Schema) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".genschema-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}
