package constants

// FileStatus is the canonical per-file status as it moves through the pipeline.
type FileStatus string

// Stable values (these exact strings are journaled).
const (
	StatusPending FileStatus = "PENDING"  // scanned, not yet OCR'd
	StatusOCRDone FileStatus = "OCR_DONE" // stage 1 completed (text extracted)
	StatusCleaned FileStatus = "CLEANED"  // stage 2 completed (text cleaned)
	StatusFailed  FileStatus = "FAILED"   // terminal failure
)

var statusRank = map[FileStatus]int{
	StatusPending: 0,
	StatusOCRDone: 1,
	StatusCleaned: 2,
}

// CanTransition reports whether a status change is a legal forward move.
// A file may fail from any non-terminal state; it never regresses.
func CanTransition(from, to FileStatus) bool {
	if from == StatusFailed || from == StatusCleaned {
		return false
	}
	if to == StatusFailed {
		return true
	}
	fr, ok1 := statusRank[from]
	tr, ok2 := statusRank[to]
	return ok1 && ok2 && tr == fr+1
}
