// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/invowk/metagen/internal/artifact"
	"github.com/invowk/metagen/internal/diag"
)

const (
	// SummaryFile is the name of the diagnostics summary artifact.
	SummaryFile = "metagen_diagnostics.md"
	// ProducerPipeline is the producer of the summary artifact.
	ProducerPipeline = "pipeline"
)

// Summary renders the diagnostics summary markdown of the pass. The output
// depends only on the result and contains no terminal styling.
func (res *Result) Summary() string {
	var b strings.Builder
	b.WriteString("# metagen diagnostics\n\n")

	fmt.Fprintf(&b, "Scope `%s`, base descriptors generated: %t.\n\n", res.ScopeName, res.BaseGenerated)

	b.WriteString("## Strategies\n\n")
	if len(res.Active) == 0 {
		b.WriteString("No strategy ran.\n\n")
	} else {
		b.WriteString("| Strategy | Candidates |\n|---|---|\n")
		for _, id := range res.Active {
			fmt.Fprintf(&b, "| %s | %d |\n", id, res.Counts[id])
		}
		b.WriteString("\n")
	}

	b.WriteString("## Artifacts\n\n")
	byProducer := artifact.CountByProducer(res.Artifacts)
	if len(byProducer) == 0 {
		b.WriteString("No artifact was produced.\n\n")
	} else {
		b.WriteString("| Producer | Artifacts |\n|---|---|\n")
		for _, p := range slices.Sorted(maps.Keys(byProducer)) {
			fmt.Fprintf(&b, "| %s | %d |\n", p, byProducer[p])
		}
		b.WriteString("\n")
	}

	b.WriteString("## Diagnostics\n\n")
	if len(res.Diagnostics) == 0 {
		b.WriteString("None.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%d error(s), %d warning(s), %d total.\n\n",
		diag.Count(res.Diagnostics, diag.SeverityError),
		diag.Count(res.Diagnostics, diag.SeverityWarning)-diag.Count(res.Diagnostics, diag.SeverityError),
		len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		b.WriteString("- " + strings.ReplaceAll(d.String(), "\n", " ") + "\n")
	}
	return b.String()
}
