package modeling

import "fmt"

// Result is the uniform envelope every public operation returns.
type Result struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`

	err error
}

// Err returns the error a failed envelope was built from, if any.
func (r Result) Err() error { return r.err }

// OK builds a successful envelope.
func OK(message string, data interface{}) Result {
	return Result{Success: true, Message: message, Data: data}
}

// Fail builds a failed envelope from an error.
func Fail(message string, err error) Result {
	r := Result{Success: false, Message: message, err: err}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Failf builds a failed envelope with a formatted message and no error.
func Failf(format string, args ...interface{}) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// BatchResult aggregates one envelope per input item.
type BatchResult struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"results"`
}

// RunBatch applies fn to every item, never stopping on a failure.
func RunBatch[T any](items []T, fn func(int, T) Result) BatchResult {
	br := BatchResult{Total: len(items), Results: make([]Result, 0, len(items))}
	for i, item := range items {
		r := fn(i, item)
		if r.Success {
			br.Succeeded++
		} else {
			br.Failed++
		}
		br.Results = append(br.Results, r)
	}
	return br
}

// Envelope wraps the batch as a single result. It succeeds when the batch ran,
// even if individual items failed.
func (br BatchResult) Envelope(operation string) Result {
	return OK(fmt.Sprintf("%s: %d/%d succeeded", operation, br.Succeeded, br.Total), br)
}
