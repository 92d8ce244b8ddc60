package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"notigram/internal/common"
	"notigram/internal/domain/notification"
)

// DefaultAPIURL is the public Telegram Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

var _ notification.Transport = (*Client)(nil)

// Client posts messages through the Telegram Bot API sendMessage method.
//
// Every call builds its own connection from the request's timeouts and
// releases it before returning, so concurrent calls share nothing.
type Client struct {
	apiURL string
}

// NewClient creates a new Telegram client. An empty apiURL selects DefaultAPIURL.
func NewClient(apiURL string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{apiURL: strings.TrimRight(apiURL, "/")}
}

func (c *Client) endpoint(token string) string {
	return fmt.Sprintf("%s/bot%s/sendMessage", c.apiURL, token)
}

// Post delivers one chunk as a form-encoded sendMessage call.
func (c *Client) Post(ctx context.Context, req notification.PostRequest) error {
	form := url.Values{}
	form.Set("chat_id", req.ChatID)
	form.Set("text", req.Text)
	if req.ParseMode != "" {
		form.Set("parse_mode", req.ParseMode)
	}

	if d := requestDeadline(req.Timeouts); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(req.Token), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", redact(err, req.Token))
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	transport := newTransport(req.Timeouts)
	defer transport.CloseIdleConnections()

	resp, err := (&http.Client{Transport: transport}).Do(httpReq)
	if err != nil {
		return common.NewNetworkError(redact(err, req.Token))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max
	if err != nil {
		return common.NewNetworkError(fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Description string `json:"description"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		return common.NewStatusError(resp.StatusCode, errResp.Description)
	}

	return nil
}

// newTransport builds a single-use transport. Zero timeouts mean no limit.
func newTransport(t notification.Timeouts) *http.Transport {
	dialer := &net.Dialer{Timeout: t.Connect}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   t.Connect,
		ResponseHeaderTimeout: t.Socket,
		DisableKeepAlives:     true,
	}
}

// requestDeadline bounds the whole call by the sum of the phase timeouts.
// If any phase is unlimited, the call is bounded only per phase.
func requestDeadline(t notification.Timeouts) time.Duration {
	if t.Connect <= 0 || t.ConnectionRequest <= 0 || t.Socket <= 0 {
		return 0
	}
	return t.Connect + t.ConnectionRequest + t.Socket
}

// redact removes the bot token from URLs embedded in err.
func redact(err error, token string) error {
	if token == "" {
		return err
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = strings.ReplaceAll(uerr.URL, token, "<token>")
	}
	return err
}
