package services

import (
	"context"
	"sync"
	"time"
)

// fakeTranscriptionClient replays scripted poll results; the last one repeats
type fakeTranscriptionClient struct {
	mu sync.Mutex

	uploadErr error
	submitErr error
	pollErr   error
	pollErrAt int
	statuses  []TranscriptStatus

	uploads int
	submits int
	polls   int
	audio   []byte
	jobURL  string
}

func (f *fakeTranscriptionClient) UploadAudio(_ context.Context, audio []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	f.audio = audio
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "https://cdn.example.com/upload/1", nil
}

func (f *fakeTranscriptionClient) CreateTranscript(_ context.Context, audioURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	f.jobURL = audioURL
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "job-1", nil
}

func (f *fakeTranscriptionClient) GetTranscript(_ context.Context, id string) (*TranscriptStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.pollErr != nil && f.polls >= f.pollErrAt {
		return nil, f.pollErr
	}
	idx := f.polls - 1
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	status := f.statuses[idx]
	status.ID = id
	return &status, nil
}

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
	err   error
}

func (r *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return r.err
}

func (r *recordingSleeper) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waits)
}

// fakeTranscriber returns a fixed transcript per audio payload
type fakeTranscriber struct {
	mu     sync.Mutex
	text   map[string]string
	err    error
	calls  int
	inputs []string
}

func (f *fakeTranscriber) TranscribeAudio(_ context.Context, audio []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, string(audio))
	if f.err != nil {
		return "", f.err
	}
	return f.text[string(audio)], nil
}

type fakeEnhancer struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeEnhancer) EnhanceContent(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "Dear recipient,\n\n" + text + "\n\nBest regards", nil
}

type sentEmail struct {
	To      string
	Subject string
	Content string
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []sentEmail
	// entered is signalled and block waited on before each send, when set
	entered chan struct{}
	block   chan struct{}
}

func (f *fakeSender) SendEmail(_ context.Context, to, subject, content string) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{To: to, Subject: subject, Content: content})
	return nil
}

func (f *fakeSender) Sent() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail(nil), f.sent...)
}

// fakeMedia serves the URL itself as the audio payload
type fakeMedia struct {
	mu      sync.Mutex
	err     error
	fetched []string
}

func (f *fakeMedia) FetchMedia(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(url), nil
}
