package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotblauer/fieldcat/catdb/pending"
	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/params"
)

// TokenHeader carries the shared secret a token-protected backend expects.
const TokenHeader = "X-Fieldcat-Token"

// HTTPClient talks to a backend exposing GET /ping and POST /locations.
type HTTPClient struct {
	base   string
	client *http.Client
	cfg    params.DeliveryConfig
}

func NewHTTPClient(cfg params.DeliveryConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		base:   strings.TrimRight(cfg.BackendURL, "/"),
		client: &http.Client{Timeout: timeout},
		cfg:    cfg,
	}
}

func (c *HTTPClient) do(req *http.Request) error {
	if c.cfg.Token != "" {
		req.Header.Set(TokenHeader, c.cfg.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func (c *HTTPClient) Reachable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/ping", nil)
	if err != nil {
		return err
	}
	if err := c.do(req); err != nil {
		if IsServerError(err) {
			return fmt.Errorf("%w: %w", ErrUnreachable, err)
		}
		return err
	}
	return nil
}

func (c *HTTPClient) Send(ctx context.Context, rec *pending.Record) error {
	body, err := Encode(rec)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/locations", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", MessageID(rec))
	return c.do(req)
}

// Announce registers the device with the backend,
// retrying a fixed number of times with a fixed backoff.
func (c *HTTPClient) Announce(ctx context.Context, deviceID conceptual.DeviceID) error {
	body, err := json.Marshal(map[string]string{"deviceId": deviceID.String()})
	if err != nil {
		return err
	}
	attempts := c.cfg.AnnounceAttempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 1; ; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/devices", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		err = c.do(req)
		if err == nil {
			return nil
		}
		logger.Warn("Announce failed", "attempt", i, "of", attempts, "error", err)
		if i >= attempts {
			return fmt.Errorf("announce after %d attempts: %w", attempts, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.AnnounceBackoff):
		}
	}
}

func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
