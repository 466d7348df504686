package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	defaultWebhookTimeout = 15 * time.Second
	maxRetries            = 3

	colorGreen = 5763719  // 0x57F287
	colorRed   = 15158332 // 0xE74C3C
)

// WebhookPayload is a Discord webhook message body.
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed is a Discord rich embed.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField is one field of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// WebhookClient posts notifications to a Discord webhook.
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewWebhookClient builds a client for the given webhook URL.
func NewWebhookClient(webhookURL string, logger *zap.Logger) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: defaultWebhookTimeout},
		logger:     logger.Sugar(),
	}
}

// SendPlannerImage posts a team-planner screenshot with an optional message,
// as a multipart upload named teams.png.
func (c *WebhookClient) SendPlannerImage(ctx context.Context, image []byte, message string) error {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", "teams.png")
	if err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := form.WriteField("content", message); err != nil {
		return fmt.Errorf("failed to write content field: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("failed to finish form: %w", err)
	}

	return c.send(ctx, body.Bytes(), form.FormDataContentType())
}

// SendSyncReport posts a summary embed after a roster sync run.
func (c *WebhookClient) SendSyncReport(ctx context.Context, runID string, inserted, players int, took time.Duration, runErr error) error {
	embed := Embed{
		Title: "Match sync finished",
		Color: colorGreen,
		Fields: []EmbedField{
			{Name: "Run", Value: runID, Inline: true},
			{Name: "Players", Value: strconv.Itoa(players), Inline: true},
			{Name: "New rows", Value: strconv.Itoa(inserted), Inline: true},
			{Name: "Duration", Value: took.Round(time.Second).String(), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if runErr != nil {
		embed.Title = "Match sync failed"
		embed.Color = colorRed
		embed.Description = runErr.Error()
	}

	data, err := json.Marshal(WebhookPayload{Embeds: []Embed{embed}})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return c.send(ctx, data, "application/json")
}

// send posts the body, retrying on Discord's 429 with its Retry-After hint.
func (c *WebhookClient) send(ctx context.Context, body []byte, contentType string) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := time.Second
			if v := resp.Header.Get("Retry-After"); v != "" {
				if secs, err := strconv.Atoi(v); err == nil {
					wait = time.Duration(secs) * time.Second
				}
			}
			c.logger.Warnw("Discord rate limited webhook", "wait", wait, "attempt", attempt+1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}
	return fmt.Errorf("webhook request failed after %d retries", maxRetries)
}
