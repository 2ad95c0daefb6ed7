package pipeline

// Batch is an ordered group of file indices whose raw text is cleaned in one
// LLM call. Batches exist only for the duration of a run.
type Batch struct {
	Indices []int
}

// partition splits indices into batches of at most size, preserving order
// within and across batches. For m indices and size k it yields ceil(m/k)
// batches, all but possibly the last of size exactly k.
func partition(indices []int, size int) []Batch {
	if size < 1 {
		size = 1
	}
	var batches []Batch
	for start := 0; start < len(indices); start += size {
		end := start + size
		if end > len(indices) {
			end = len(indices)
		}
		batches = append(batches, Batch{Indices: indices[start:end]})
	}
	return batches
}
