package pipeline

import (
	"path/filepath"

	"github.com/novaocr/novaocr/constants"
)

// SourceFile is one input image or PDF tracked through the pipeline. Its
// path is its identity and never changes; status only moves forward.
type SourceFile struct {
	Path string
	Kind constants.MediaKind

	status constants.FileStatus
}

// NewSourceFile builds a pending SourceFile for a path.
func NewSourceFile(path string) *SourceFile {
	return &SourceFile{
		Path:   path,
		Kind:   constants.KindForExt(filepath.Ext(path)),
		status: constants.StatusPending,
	}
}

// Status returns the current processing status.
func (f *SourceFile) Status() constants.FileStatus {
	return f.status
}

// Advance moves the file to a later status. Illegal moves (regressions,
// stage skips, transitions out of a terminal state) are ignored and
// reported as false.
func (f *SourceFile) Advance(to constants.FileStatus) bool {
	if !constants.CanTransition(f.status, to) {
		return false
	}
	f.status = to
	return true
}

// Result is the final per-file outcome: cleaned text or a failure. Raw OCR
// text is retained even when batch cleanup failed so output assembly can
// still fall back to it.
type Result struct {
	Path     string
	Status   constants.FileStatus
	Text     string // cleaned text, empty unless Status is CLEANED
	Raw      string // raw OCR text
	Empty    bool   // OCR produced no text; excluded from cleanup batches
	Attempts int    // attempts consumed by the last operation on this file
	Err      error
}

// Failed reports whether the file ended in a terminal failure.
func (r Result) Failed() bool {
	return r.Status == constants.StatusFailed
}
