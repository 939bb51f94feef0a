// Package notify sends short text messages to callers. Dispatch is
// best-effort everywhere except the wallet-creation disclosure, which is the
// only channel carrying the plaintext key to the user.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// Sender dispatches one message to one phone number.
type Sender interface {
	Send(ctx context.Context, phoneNumber, message string) error
}

// Config configures the SMS gateway client.
type Config struct {
	BaseURL  string
	Username string
	APIKey   string
	From     string
	RatePerS float64
	Burst    int
}

// Client posts messages to an Africa's Talking-compatible messaging
// endpoint. Outbound calls are rate limited with a token bucket so a burst
// of sessions cannot trip the gateway's own limits.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

var _ Sender = (*Client)(nil)

// NewClient creates an SMS gateway client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.Username == "" || cfg.APIKey == "" {
		return nil, dialerr.New("VALIDATION", "sms gateway url, username and api key are required")
	}
	if cfg.RatePerS <= 0 {
		cfg.RatePerS = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerS), cfg.Burst),
	}, nil
}

// gatewayResponse is the subset of the gateway reply we inspect.
type gatewayResponse struct {
	SMSMessageData struct {
		Recipients []struct {
			Status     string `json:"status"`
			StatusCode int    `json:"statusCode"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// Send posts one message, blocking on the rate limiter first.
func (c *Client) Send(ctx context.Context, phoneNumber, message string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return dialerr.WrapWith(err, dialerr.ErrNotification, "waiting for send slot")
	}

	form := url.Values{}
	form.Set("username", c.cfg.Username)
	form.Set("to", phoneNumber)
	form.Set("message", message)
	if c.cfg.From != "" {
		form.Set("from", c.cfg.From)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return dialerr.WrapWith(err, dialerr.ErrNotification, "building gateway request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return dialerr.WrapWith(err, dialerr.ErrNotification, "posting to gateway")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dialerr.WithDetails(dialerr.ErrNotification, map[string]string{
			"status": fmt.Sprintf("%d", resp.StatusCode),
		})
	}

	var body gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return dialerr.WrapWith(err, dialerr.ErrNotification, "decoding gateway response")
	}
	for _, r := range body.SMSMessageData.Recipients {
		// 1xx status codes are the gateway's success range.
		if r.StatusCode < 100 || r.StatusCode > 199 {
			return dialerr.WithDetails(dialerr.ErrNotification, map[string]string{
				"recipientStatus": r.Status,
			})
		}
	}
	return nil
}
