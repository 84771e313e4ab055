package grab

// StageResult is the tagged outcome of one step of the
// fetch -> validate -> persist pipeline. A zero Reason means success.
type StageResult[T any] struct {
	Value  T
	Reason FailureReason
	Err    error
}

func succeeded[T any](v T) StageResult[T] {
	return StageResult[T]{Value: v}
}

func failed[T any](reason FailureReason, err error) StageResult[T] {
	return StageResult[T]{Reason: reason, Err: err}
}

// OK reports whether the stage succeeded.
func (r StageResult[T]) OK() bool { return r.Reason == "" }
