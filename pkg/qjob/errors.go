package qjob

import "fmt"

// SubmissionError reports that the transport rejected a send
type SubmissionError struct {
	CircuitID string
	Err       error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("failed to submit circuit %q: %v", e.CircuitID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ParameterTypeError reports a parameter update that is not a sequence of
// real numbers.
type ParameterTypeError struct {
	Reason string
}

func (e *ParameterTypeError) Error() string {
	return fmt.Sprintf("invalid parameters: %s", e.Reason)
}

// JobError reports an accessor used against the job lifecycle, such as
// reading the duration before any result has resolved.
type JobError struct {
	CircuitID string
	Reason    string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %q: %s", e.CircuitID, e.Reason)
}
