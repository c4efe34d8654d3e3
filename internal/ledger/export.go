// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kbconvert/pkg/types"
)

// Export is the YAML document written by ExportYAML.
type Export struct {
	Run        types.RunReport `yaml:"run"`
	Unresolved []UnresolvedKey `yaml:"unresolved,omitempty"`
}

// ExportYAML writes a run and its unresolved-key summary as YAML. A zero
// runID selects the latest run.
func (l *Ledger) ExportYAML(ctx context.Context, w io.Writer, runID int64) error {
	run, err := l.Run(ctx, runID)
	if err != nil {
		return err
	}
	unresolved, err := l.Unresolved(ctx, run.ID)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Export{Run: run, Unresolved: unresolved}); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}
