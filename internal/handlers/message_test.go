package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/voxmail-backend/internal/logging"
	"github.com/Ananth-NQI/voxmail-backend/internal/models"
	"github.com/Ananth-NQI/voxmail-backend/internal/services"
	"github.com/Ananth-NQI/voxmail-backend/internal/storage"
)

type fakeVoice struct {
	transcribeErr error
	deliverErr    error

	audio []byte
	req   services.DeliveryRequest
	calls int
}

func (f *fakeVoice) Transcribe(_ context.Context, audio []byte) (string, error) {
	f.audio = audio
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return "call me back tomorrow", nil
}

func (f *fakeVoice) Deliver(_ context.Context, req services.DeliveryRequest) (*models.VoiceMessage, error) {
	f.calls++
	f.req = req
	if f.deliverErr != nil {
		return nil, f.deliverErr
	}
	return &models.VoiceMessage{
		MessageID:       "msg-1",
		Channel:         req.Channel,
		RecipientEmail:  req.Recipient,
		TranscribedText: req.Transcript,
		EnhancedContent: "Dear colleague, please call me back tomorrow.",
		Status:          models.DeliveryStatusCompleted,
	}, nil
}

func newMessageApp(v VoiceProcessor, deliveries storage.DeliveryStore) *fiber.App {
	h := NewMessageHandler(v, deliveries, 0, logging.Discard())
	app := fiber.New()
	app.Post("/api/message", h.SendMessage)
	app.Get("/api/message/:id", h.GetMessage)
	app.Get("/api/messages", h.ListMessages)
	return app
}

func multipartRequest(t *testing.T, audio []byte, recipient string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if audio != nil {
		part, err := w.CreateFormFile("audioFile", "note.ogg")
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, w.WriteField("recipientEmail", recipient))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/message", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSendMessage_Success(t *testing.T) {
	v := &fakeVoice{}
	app := newMessageApp(v, storage.NewMemoryStore())

	resp, err := app.Test(multipartRequest(t, []byte("OggS"), "a.b@example.com"), -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, "call me back tomorrow", body["transcribedText"])
	assert.Equal(t, "Dear colleague, please call me back tomorrow.", body["enhancedContent"])
	assert.Equal(t, "a.b@example.com", body["recipientEmail"])
	assert.Equal(t, "Completed", body["status"])
	assert.Equal(t, "msg-1", body["messageId"])

	assert.Equal(t, "OggS", string(v.audio))
	assert.Equal(t, models.ChannelAPI, v.req.Channel)
	assert.Equal(t, services.SubjectAPI, v.req.Subject)
}

func TestSendMessage_Validation(t *testing.T) {
	tests := []struct {
		name      string
		audio     []byte
		recipient string
	}{
		{"missing audio", nil, "a.b@example.com"},
		{"empty audio", []byte{}, "a.b@example.com"},
		{"missing recipient", []byte("OggS"), ""},
		{"invalid recipient", []byte("OggS"), "not-an-email"},
		{"recipient with extra text", []byte("OggS"), "mail a.b@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeVoice{}
			app := newMessageApp(v, storage.NewMemoryStore())

			resp, err := app.Test(multipartRequest(t, tt.audio, tt.recipient), -1)
			require.NoError(t, err)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Nil(t, v.audio)
			assert.Equal(t, 0, v.calls)
		})
	}
}

func TestSendMessage_PipelineFailure(t *testing.T) {
	tests := []struct {
		name string
		v    *fakeVoice
	}{
		{"transcription", &fakeVoice{transcribeErr: &services.TranscriptionError{Kind: services.FailureTimeout}}},
		{"delivery", &fakeVoice{deliverErr: services.ErrDispatchFailed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMessageApp(tt.v, storage.NewMemoryStore())

			resp, err := app.Test(multipartRequest(t, []byte("OggS"), "a.b@example.com"), -1)
			require.NoError(t, err)

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, map[string]any{"error": "An error occurred while processing your message"}, decodeJSON(t, resp))
		})
	}
}

func TestGetMessage(t *testing.T) {
	deliveries := storage.NewMemoryStore()
	_, err := deliveries.CreateVoiceMessage(&models.VoiceMessage{
		MessageID:      "abc",
		Channel:        models.ChannelWhatsApp,
		RecipientEmail: "a.b@example.com",
	})
	require.NoError(t, err)
	app := newMessageApp(&fakeVoice{}, deliveries)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/message/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, "abc", body["message_id"])
	assert.Equal(t, "a.b@example.com", body["recipient_email"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/message/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListMessages(t *testing.T) {
	deliveries := storage.NewMemoryStore()
	for _, rec := range []*models.VoiceMessage{
		{MessageID: "m1", SenderPhone: "+15550001", Status: models.DeliveryStatusCompleted},
		{MessageID: "m2", SenderPhone: "+15550002"},
		{MessageID: "m3", SenderPhone: "+15550001", Status: models.DeliveryStatusFailed},
	} {
		_, err := deliveries.CreateVoiceMessage(rec)
		require.NoError(t, err)
	}
	app := newMessageApp(&fakeVoice{}, deliveries)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/messages?sender=whatsapp:%2B15550001", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count    int                    `json:"count"`
		Messages []*models.VoiceMessage `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "m1", body.Messages[0].MessageID)
	assert.Equal(t, "m3", body.Messages[1].MessageID)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/messages?sender=%2B19999999", nil))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": float64(0), "messages": []any{}}, decodeJSON(t, resp))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/messages", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
