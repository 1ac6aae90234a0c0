package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	twilioclient "github.com/twilio/twilio-go/client"
)

// WhatsApp caps media at 16MB
const maxMediaBytes = 16 << 20

// MediaFetcher downloads an inbound media attachment
type MediaFetcher interface {
	FetchMedia(ctx context.Context, url string) ([]byte, error)
}

// TwilioService downloads WhatsApp media and checks webhook signatures
type TwilioService struct {
	accountSID string
	authToken  string
	validator  twilioclient.RequestValidator
	http       *http.Client
	logger     *slog.Logger
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService(accountSID, authToken string, logger *slog.Logger) (*TwilioService, error) {
	if accountSID == "" || authToken == "" {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	return &TwilioService{
		accountSID: accountSID,
		authToken:  authToken,
		validator:  twilioclient.NewRequestValidator(authToken),
		http:       &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
	}, nil
}

// SetHTTPClient replaces the client used for media downloads
func (t *TwilioService) SetHTTPClient(c *http.Client) {
	if c != nil {
		t.http = c
	}
}

// ValidateRequest checks an X-Twilio-Signature against the public URL and form params
func (t *TwilioService) ValidateRequest(url string, params map[string]string, signature string) bool {
	return t.validator.Validate(url, params, signature)
}

// FetchMedia downloads a media attachment using the account credentials
func (t *TwilioService) FetchMedia(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)

	res, err := t.http.Do(req)
	if err != nil {
		t.logger.Error("media download failed", "url", url, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		t.logger.Error("media download rejected", "url", url, "status", res.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrDownloadFailed, res.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxMediaBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if len(data) > maxMediaBytes {
		return nil, fmt.Errorf("%w: media larger than %d bytes", ErrDownloadFailed, maxMediaBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty media", ErrDownloadFailed)
	}

	t.logger.Info("downloaded voice note", "url", url, "bytes", len(data))
	return data, nil
}
