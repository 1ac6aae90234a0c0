package services

import (
	"context"
	"log/slog"
	"time"
)

// PollPolicy bounds how long a transcription job is waited on
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPollPolicy polls once per second for a minute
var DefaultPollPolicy = PollPolicy{Interval: time.Second, MaxAttempts: 60}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Transcriber turns audio into text
type Transcriber interface {
	TranscribeAudio(ctx context.Context, audio []byte) (string, error)
}

// TranscriptionService runs a transcription job end to end: upload, submit, poll
type TranscriptionService struct {
	client TranscriptionClient
	policy PollPolicy
	sleep  Sleeper
	logger *slog.Logger
}

// TranscriptionOption customizes a TranscriptionService
type TranscriptionOption func(*TranscriptionService)

// WithPollPolicy overrides the poll interval and attempt budget
func WithPollPolicy(p PollPolicy) TranscriptionOption {
	return func(s *TranscriptionService) {
		if p.MaxAttempts > 0 {
			s.policy.MaxAttempts = p.MaxAttempts
		}
		if p.Interval >= 0 {
			s.policy.Interval = p.Interval
		}
	}
}

// WithSleeper replaces the wait between polls
func WithSleeper(sleep Sleeper) TranscriptionOption {
	return func(s *TranscriptionService) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// NewTranscriptionService creates a job runner over client
func NewTranscriptionService(client TranscriptionClient, logger *slog.Logger, opts ...TranscriptionOption) *TranscriptionService {
	s := &TranscriptionService{
		client: client,
		policy: DefaultPollPolicy,
		sleep:  sleepContext,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the active poll policy
func (s *TranscriptionService) Policy() PollPolicy {
	return s.policy
}

// TranscribeAudio returns the transcript of audio or a *TranscriptionError.
// Only the status poll repeats; no provider call is retried.
func (s *TranscriptionService) TranscribeAudio(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", validationError("audio is empty")
	}

	s.logger.Info("starting audio transcription", "bytes", len(audio))

	uploadURL, err := s.client.UploadAudio(ctx, audio)
	if err != nil {
		s.logger.Error("audio upload failed", "error", err)
		return "", &TranscriptionError{Kind: FailureUpload, Err: err}
	}

	jobID, err := s.client.CreateTranscript(ctx, uploadURL)
	if err != nil {
		s.logger.Error("transcription request failed", "error", err)
		return "", &TranscriptionError{Kind: FailureSubmission, Err: err}
	}

	logger := s.logger.With("job_id", jobID)
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		status, err := s.client.GetTranscript(ctx, jobID)
		if err != nil {
			logger.Error("polling transcription failed", "attempt", attempt, "error", err)
			return "", &TranscriptionError{Kind: FailurePoll, JobID: jobID, Err: err}
		}

		switch status.Status {
		case TranscriptCompleted:
			if status.Text == "" {
				logger.Error("transcription completed with empty text")
				return "", &TranscriptionError{Kind: FailureEmptyResult, JobID: jobID}
			}
			logger.Info("transcription completed", "attempts", attempt)
			return status.Text, nil
		case TranscriptError:
			detail := status.Error
			if detail == "" {
				detail = "unknown error"
			}
			logger.Error("transcription failed", "detail", detail)
			return "", &TranscriptionError{Kind: FailureRemote, JobID: jobID, Detail: detail}
		}

		logger.Debug("waiting for transcription", "status", status.Status, "attempt", attempt)
		if attempt == s.policy.MaxAttempts {
			break
		}
		if err := s.sleep(ctx, s.policy.Interval); err != nil {
			return "", &TranscriptionError{Kind: FailureTimeout, JobID: jobID, Err: err}
		}
	}

	budget := s.policy.Interval * time.Duration(s.policy.MaxAttempts)
	logger.Error("transcription timed out", "attempts", s.policy.MaxAttempts, "budget", budget)
	return "", &TranscriptionError{Kind: FailureTimeout, JobID: jobID, Detail: "timed out after " + budget.String()}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
