package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client posts plain-text summaries to a chat webhook.
type Client interface {
	PostSummary(ctx context.Context, text string) error
}

// WebhookClient is a resty-backed implementation of Client. The payload shape
// matches Slack-compatible incoming webhooks.
type WebhookClient struct {
	httpClient *resty.Client
	url        string
}

var _ Client = (*WebhookClient)(nil)

// NewWebhookClient builds a webhook client for the given URL.
func NewWebhookClient(url string) *WebhookClient {
	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &WebhookClient{httpClient: restyClient, url: url}
}

// PostSummary delivers one text payload to the webhook.
func (c *WebhookClient) PostSummary(ctx context.Context, text string) error {
	payload := map[string]any{"text": text}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("post summary: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		body := resp.String()
		if len(body) > 200 {
			body = body[:200]
		}
		return fmt.Errorf("webhook error: status=%d, body=%s", resp.StatusCode(), body)
	}

	return nil
}
