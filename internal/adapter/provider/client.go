package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/perkwell/payout/internal/domain/model"
)

// Transfer outcome statuses reported by the payout provider.
const (
	StatusAccepted  = "accepted"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrTransferRejected indicates the provider refused the transfer outright.
var ErrTransferRejected = errors.New("transfer rejected by provider")

// TooManyRequestsError represents rate limiting signal from the provider.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// ProviderError wraps a transient provider fault. The dispatcher retries
// it up to the configured ceiling.
type ProviderError struct {
	Status int
	Body   string
}

func (e ProviderError) Error() string {
	return fmt.Sprintf("provider error: status %d", e.Status)
}

// Receipt is the provider's acknowledgment of a transfer request.
type Receipt struct {
	ProviderRef string
	Status      string
}

// Client exposes the opaque payout provider capability. The core treats
// it as untrusted and re-validates amounts before trusting any callback.
type Client interface {
	Transfer(ctx context.Context, t model.FundTransfer) (*Receipt, error)
}

// HTTPClient implements Client against the provider's HTTP API.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type transferPayload struct {
	Reference string `json:"reference"`
	Recipient string `json:"recipient"`
	Bank      string `json:"bank,omitempty"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type transferResponse struct {
	ProviderRef string `json:"provider_ref"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
}

// NewHTTPClient creates a provider client with a bounded call timeout.
// A call that exceeds the timeout is treated as unknown outcome and the
// retry path is taken, never implicit success.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("provider url must be absolute")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Transfer submits one fund transfer to the provider.
func (c *HTTPClient) Transfer(ctx context.Context, t model.FundTransfer) (*Receipt, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/api/transfers")

	body, err := json.Marshal(transferPayload{
		Reference: t.Reference,
		Recipient: t.RecipientAcct,
		Bank:      t.RecipientBank,
		Amount:    t.Net,
		Currency:  "USD",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ProviderError{Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var data transferResponse
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
		if data.Status == StatusFailed {
			return nil, fmt.Errorf("%w: %s", ErrTransferRejected, data.Message)
		}
		return &Receipt{ProviderRef: data.ProviderRef, Status: data.Status}, nil
	case http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, TooManyRequestsError{RetryAfter: retryAfter}
	case http.StatusUnprocessableEntity:
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s", ErrTransferRejected, string(raw))
	default:
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Error("provider request failed",
			slog.Int("status", resp.StatusCode),
			slog.String("reference", t.Reference),
			slog.String("body", string(raw)),
		)
		return nil, ProviderError{Status: resp.StatusCode, Body: string(raw)}
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
