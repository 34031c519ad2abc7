package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/gomarkdown/markdown"

	apperrors "tlsid/internal/errors"
)

// WriteHTMLSummary renders a short markdown summary of rows to HTML and
// writes it to path. This fills the "textual reporting" collaborator
// named out-of-scope-but-interfaced in spec §1 with a minimal concrete
// implementation; the CSV report remains the machine-readable contract.
func WriteHTMLSummary(path string, rows []Row) (err error) {
	if path == "" {
		return nil
	}

	var b strings.Builder
	b.WriteString("# TLS Application Identification Summary\n\n")
	for _, r := range rows {
		mode := "fingerprint"
		if r.IsComb {
			mode = "fingerprint+SNI+session"
		}
		fmt.Fprintf(&b, "## Mode: %s\n\n", mode)
		fmt.Fprintf(&b, "- Total rows: %d\n", r.Mode.Total())
		fmt.Fprintf(&b, "- Overall accuracy: %.4f\n", r.Derived.OverallAccuracy)
		fmt.Fprintf(&b, "- Error rate: %.4f\n", r.Derived.ErrorRate)
		fmt.Fprintf(&b, "- Empty candidates: %d\n", r.Mode.EmptyCandidates)
		fmt.Fprintf(&b, "- Candidate-list length (mean/median/min/max): %.2f / %.2f / %.2f / %.2f\n\n",
			r.Derived.LenMean, r.Derived.LenMedian, r.Derived.LenMin, r.Derived.LenMax)
	}

	html := markdown.ToHTML([]byte(b.String()), nil, nil)

	f, openErr := os.Create(path)
	if openErr != nil {
		return apperrors.Wrap(openErr, "failed to create HTML summary file")
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = apperrors.Wrap(closeErr, "failed to close HTML summary file")
		}
	}()

	if _, err := f.Write(html); err != nil {
		return apperrors.Wrap(err, "failed to write HTML summary file")
	}
	return nil
}
