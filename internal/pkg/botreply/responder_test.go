package botreply

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fudoline/fudoline/app/models"
	"github.com/fudoline/fudoline/app/repository"
	"github.com/fudoline/fudoline/internal/pkg/apperr"
	"github.com/fudoline/fudoline/internal/pkg/openaibatch"
	"github.com/fudoline/fudoline/internal/pkg/usage"
)

type fakeChannels struct {
	byID map[string]*models.BotChannel
}

func (f *fakeChannels) GetByChannelID(channelID string) (*models.BotChannel, error) {
	channel, ok := f.byID[channelID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return channel, nil
}

type fakeSearcher struct {
	listings []models.Property
}

func (f *fakeSearcher) Search(tenantID, query string, limit int) ([]models.Property, error) {
	return f.listings, nil
}

type fakeChat struct {
	answer string
	tokens int
	calls  []([]openaibatch.ChatMessage)
	err    error
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, messages []openaibatch.ChatMessage, maxTokens int) (string, int, error) {
	f.calls = append(f.calls, messages)
	return f.answer, f.tokens, f.err
}

type fakeSender struct {
	replies []string
	tokens  []string
}

func (f *fakeSender) Reply(ctx context.Context, accessToken, replyToken, text string) error {
	f.replies = append(f.replies, text)
	f.tokens = append(f.tokens, replyToken)
	return nil
}

type memHistory struct {
	store map[string][]openaibatch.ChatMessage
}

func (m *memHistory) Load(channelID, userID string) []openaibatch.ChatMessage {
	return m.store[channelID+":"+userID]
}

func (m *memHistory) Append(channelID, userID string, messages ...openaibatch.ChatMessage) {
	key := channelID + ":" + userID
	m.store[key] = append(m.store[key], messages...)
}

type fakeTokenRepo struct {
	rows map[string]*models.UsageToken
}

func (f *fakeTokenRepo) Create(tokens *models.UsageToken) error { return nil }

func (f *fakeTokenRepo) GetByTenantID(tenantID string) (*models.UsageToken, error) {
	row, ok := f.rows[tenantID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeTokenRepo) Consume(tenantID string, amount int64) error {
	row, ok := f.rows[tenantID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if row.TokensUsed+amount > row.TokensLimit+row.AdditionalTokens {
		return repository.ErrQuotaExceeded
	}
	row.TokensUsed += amount
	return nil
}

func (f *fakeTokenRepo) SetLimit(tenantID string, limit int64) error   { return nil }
func (f *fakeTokenRepo) AddTokens(tenantID string, amount int64) error { return nil }
func (f *fakeTokenRepo) Reset(tenantID string, t time.Time) error      { return nil }

type botHarness struct {
	responder *Responder
	chat      *fakeChat
	sender    *fakeSender
	tokens    *fakeTokenRepo
	history   *memHistory
	channel   *models.BotChannel
}

func newBotHarness() *botHarness {
	channel := &models.BotChannel{
		ID:            "ch-row-1",
		TenantID:      "tenant-1",
		ChannelID:     "U-dest-1",
		ChannelSecret: "channel-secret",
		AccessToken:   "access-token",
		Active:        true,
	}
	channels := &fakeChannels{byID: map[string]*models.BotChannel{channel.ChannelID: channel}}
	price := 3480.0
	searcher := &fakeSearcher{listings: []models.Property{
		{Name: "グリーンハイツ101", Address: "東京都渋谷区1-2-3", PropertyType: "マンション", Price: &price},
	}}
	chat := &fakeChat{answer: "渋谷区のマンションですと、グリーンハイツ101がございます。", tokens: 120}
	sender := &fakeSender{}
	history := &memHistory{store: make(map[string][]openaibatch.ChatMessage)}
	tokens := &fakeTokenRepo{rows: map[string]*models.UsageToken{
		"tenant-1": {
			TenantID:    "tenant-1",
			TokensLimit: 1000,
			ResetDate:   time.Now().AddDate(0, 1, 0),
		},
	}}
	responder := NewResponder(channels, searcher, usage.NewService(tokens), chat, sender, history)
	return &botHarness{responder: responder, chat: chat, sender: sender, tokens: tokens, history: history, channel: channel}
}

func webhookBody(destination, text string) []byte {
	payload := WebhookPayload{Destination: destination}
	event := Event{Type: "message", ReplyToken: "reply-1"}
	event.Source.UserID = "user-1"
	event.Message.Type = "text"
	event.Message.Text = text
	payload.Events = []Event{event}
	body, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("marshal webhook body: %v", err))
	}
	return body
}

func TestHandleWebhookRepliesToTextMessage(t *testing.T) {
	h := newBotHarness()
	body := webhookBody("U-dest-1", "渋谷でマンションはありますか？")

	err := h.responder.HandleWebhook(context.Background(), body, sign("channel-secret", body))
	require.NoError(t, err)

	require.Len(t, h.sender.replies, 1)
	assert.Equal(t, h.chat.answer, h.sender.replies[0])
	assert.Equal(t, "reply-1", h.sender.tokens[0])

	// The listing context reaches the model.
	require.Len(t, h.chat.calls, 1)
	assert.Contains(t, h.chat.calls[0][0].Content, "グリーンハイツ101")

	// Tokens are metered and the exchange is remembered.
	assert.Equal(t, int64(120), h.tokens.rows["tenant-1"].TokensUsed)
	assert.Len(t, h.history.store["U-dest-1:user-1"], 2)
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	h := newBotHarness()
	body := webhookBody("U-dest-1", "こんにちは")

	err := h.responder.HandleWebhook(context.Background(), body, sign("wrong-secret", body))
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	assert.Empty(t, h.sender.replies)
	assert.Empty(t, h.chat.calls)
}

func TestHandleWebhookUnknownDestination(t *testing.T) {
	h := newBotHarness()
	body := webhookBody("U-nope", "こんにちは")

	err := h.responder.HandleWebhook(context.Background(), body, sign("channel-secret", body))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestHandleWebhookDisabledChannel(t *testing.T) {
	h := newBotHarness()
	h.channel.Active = false
	body := webhookBody("U-dest-1", "こんにちは")

	err := h.responder.HandleWebhook(context.Background(), body, sign("channel-secret", body))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestHandleWebhookQuotaExhaustedSendsUpgradeNotice(t *testing.T) {
	h := newBotHarness()
	h.tokens.rows["tenant-1"].TokensUsed = 1000
	body := webhookBody("U-dest-1", "こんにちは")

	err := h.responder.HandleWebhook(context.Background(), body, sign("channel-secret", body))
	require.NoError(t, err)

	require.Len(t, h.sender.replies, 1)
	assert.Equal(t, quotaExceededReply, h.sender.replies[0])
	assert.Empty(t, h.chat.calls)
}

func TestHandleWebhookIgnoresNonTextEvents(t *testing.T) {
	h := newBotHarness()
	payload := WebhookPayload{Destination: "U-dest-1"}
	event := Event{Type: "message", ReplyToken: "reply-1"}
	event.Message.Type = "sticker"
	follow := Event{Type: "follow"}
	payload.Events = []Event{event, follow}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	err = h.responder.HandleWebhook(context.Background(), body, sign("channel-secret", body))
	require.NoError(t, err)
	assert.Empty(t, h.sender.replies)
}

func TestHandleWebhookHistoryCarriesForward(t *testing.T) {
	h := newBotHarness()
	body := webhookBody("U-dest-1", "渋谷でマンションはありますか？")
	require.NoError(t, h.responder.HandleWebhook(context.Background(), body, sign("channel-secret", body)))

	body2 := webhookBody("U-dest-1", "家賃はいくらですか？")
	require.NoError(t, h.responder.HandleWebhook(context.Background(), body2, sign("channel-secret", body2)))

	require.Len(t, h.chat.calls, 2)
	// system + prior user/assistant turns + new question
	assert.Len(t, h.chat.calls[1], 4)
}
