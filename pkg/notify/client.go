package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ikkim/bazaar-backend/pkg/logger"
	"github.com/sony/gobreaker"
)

// Client sends transactional email through an HTTP relay behind a circuit breaker
type Client struct {
	config     Config
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// NewClient creates a new relay client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	st := gobreaker.Settings{
		Name:        "EmailRelay",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		// a rejected message says nothing about relay health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		cb:         gobreaker.NewCircuitBreaker(st),
	}, nil
}

// Send delivers one message
func (c *Client) Send(ctx context.Context, email Email) error {
	if strings.TrimSpace(email.To) == "" || email.Subject == "" {
		return ErrInvalidMessage
	}

	req := sendRequest{
		From:    c.config.From,
		To:      []string{email.To},
		Subject: email.Subject,
		Text:    email.Text,
		Tags:    email.Tags,
	}

	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.doRequest(ctx, "emails", req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return err
}

// State exposes the breaker state for health reporting
func (c *Client) State() string {
	return c.cb.State().String()
}

func (c *Client) doRequest(ctx context.Context, endpoint string, payload interface{}) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.config.BaseURL, "/"), endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var errResp ErrorResponse
	_ = json.Unmarshal(body, &errResp)
	errorMsg := fmt.Sprintf("status %d, code %q, message %q", resp.StatusCode, errResp.Code, errResp.Message)

	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", ErrRejected, errorMsg)
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, errorMsg)
}
