package main

import (
	"fmt"

	"github.com/pkg/errors"
)

// Stage names the step of the record pipeline that failed.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageRead    Stage = "read"
	StagePublish Stage = "publish"
)

// RecordError is returned by a Notifier when a single object could not be
// processed. Handlers log it and move on to the next record.
type RecordError struct {
	Stage  Stage
	Object S3ObjectInfo
	Err    error
}

func newRecordError(stage Stage, obj S3ObjectInfo, err error) *RecordError {
	return &RecordError{Stage: stage, Object: obj, Err: err}
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Object, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// stageOf reports the stage of err if it is, or wraps, a RecordError.
func stageOf(err error) Stage {
	var recordErr *RecordError
	if errors.As(err, &recordErr) {
		return recordErr.Stage
	}
	return ""
}
