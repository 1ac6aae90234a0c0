package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a malformed request; nothing was sent to any provider
	ErrValidation = errors.New("validation failed")
	// ErrInvalidEmail means no address was found where one was required
	ErrInvalidEmail = errors.New("no valid email address")
	// ErrDownloadFailed means the voice note could not be fetched
	ErrDownloadFailed = errors.New("voice note download failed")
	// ErrEnhanceFailed means the content provider could not rewrite the transcript
	ErrEnhanceFailed = errors.New("content enhancement failed")
	// ErrDispatchFailed means the email provider rejected or failed the send
	ErrDispatchFailed = errors.New("email dispatch failed")
)

// FailureKind classifies how a transcription job ended without text
type FailureKind string

const (
	FailureUpload      FailureKind = "upload_failed"
	FailureSubmission  FailureKind = "submission_failed"
	FailurePoll        FailureKind = "poll_failed"
	FailureEmptyResult FailureKind = "empty_result"
	FailureRemote      FailureKind = "remote_error"
	FailureTimeout     FailureKind = "timeout"
)

// TranscriptionError is the terminal failure of a transcription job
type TranscriptionError struct {
	Kind   FailureKind
	JobID  string
	Detail string
	Err    error
}

func (e *TranscriptionError) Error() string {
	msg := "transcription " + string(e.Kind)
	if e.JobID != "" {
		msg += fmt.Sprintf(" (job %s)", e.JobID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// TranscriptionFailure returns the failure kind of err, if it is a transcription failure
func TranscriptionFailure(err error) (FailureKind, bool) {
	var te *TranscriptionError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}

// IsTimeout reports whether err is a transcription that ran out of time
func IsTimeout(err error) bool {
	kind, ok := TranscriptionFailure(err)
	return ok && kind == FailureTimeout
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
