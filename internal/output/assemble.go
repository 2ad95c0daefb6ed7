package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/novaocr/novaocr/internal/pipeline"
)

// Assemble joins per-file results into one document body, in input order.
// Cleaned text is used when available; a file whose cleanup failed
// contributes its raw OCR text instead, and a file with no text at all
// contributes a one-line failure note. Blank pages are skipped.
func Assemble(results []pipeline.Result) string {
	var parts []string
	for i, r := range results {
		switch {
		case r.Empty:
			continue
		case r.Text != "":
			parts = append(parts, r.Text)
		case r.Raw != "":
			parts = append(parts, r.Raw)
		case r.Failed():
			parts = append(parts, failureNote(i, r))
		}
	}
	return strings.Join(parts, "\n\n")
}

func failureNote(i int, r pipeline.Result) string {
	reason := "unknown error"
	if r.Err != nil {
		reason = r.Err.Error()
	}
	return fmt.Sprintf("[page %d: %s failed: %s]", i+1, filepath.Base(r.Path), reason)
}
