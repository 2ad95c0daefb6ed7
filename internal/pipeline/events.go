package pipeline

// Stage identifies the pipeline phase a progress event belongs to.
type Stage string

const (
	StageOCR    Stage = "ocr"
	StageClean  Stage = "clean"
	StageOutput Stage = "output"
)

// ProgressEvent is emitted after each file's OCR completion and after each
// batch's cleanup completion. Consumers (CLI progress bar, logs) must not
// block; events are delivered serially.
type ProgressEvent struct {
	Stage   Stage
	Done    int // files done so far within the stage
	Total   int // total files in the stage
	File    string
	Message string
}
