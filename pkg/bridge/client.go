package bridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/polisai/polis-flavor/pkg/channel"
	"github.com/polisai/polis-flavor/pkg/domain"
)

// Client sends encoded method calls to an HTTP bridge. It satisfies
// channel.Sender.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      *retryPolicy
}

var _ channel.Sender = (*Client)(nil)

// NewClient returns a client for the bridge at baseURL. A nil httpClient
// gets an otelhttp transport.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		retry:      newRetryPolicy(RetryConfig{}),
	}
}

// WithRetry enables retries on transport errors and retryable statuses.
func (c *Client) WithRetry(config RetryConfig) *Client {
	c.retry = newRetryPolicy(config)
	return c
}

// Send posts message to the channel route. 404 maps to
// domain.ChannelNotFoundError.
func (c *Client) Send(ctx context.Context, channelName string, message []byte) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		status, body, err := c.post(ctx, channelName, message)
		if !c.retry.shouldRetry(status, err, attempt) {
			if err != nil {
				return nil, err
			}
			return mapResponse(channelName, status, body)
		}
		if werr := c.retry.wait(ctx, attempt); werr != nil {
			return nil, werr
		}
	}
}

func (c *Client) post(ctx context.Context, channelName string, message []byte) (int, []byte, error) {
	endpoint := c.baseURL + "/channels/" + url.PathEscape(channelName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(message))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send to %s: %w", channelName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read reply: %w", err)
	}
	return resp.StatusCode, body, nil
}

func mapResponse(channelName string, status int, body []byte) ([]byte, error) {
	switch status {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, &domain.ChannelNotFoundError{Channel: channelName}
	default:
		return nil, &StatusError{StatusCode: status, Body: strings.TrimSpace(string(body))}
	}
}
