package botreply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fudoline/fudoline/internal/pkg/env"
)

const defaultReplyEndpoint = "https://api.line.me/v2/bot/message/reply"

// httpReplySender delivers replies through the platform's reply API using
// the channel access token.
type httpReplySender struct {
	endpoint   string
	httpClient *http.Client
}

// NewReplySender returns the HTTP reply sender.
func NewReplySender() ReplySender {
	return &httpReplySender{
		endpoint:   env.GetEnv("BOT_REPLY_ENDPOINT", defaultReplyEndpoint),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *httpReplySender) Reply(ctx context.Context, accessToken, replyToken, text string) error {
	payload := map[string]interface{}{
		"replyToken": replyToken,
		"messages": []map[string]string{
			{"type": "text", "text": text},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("reply api status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
