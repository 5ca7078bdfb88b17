package botreply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/fudoline/fudoline/app/models"
	"github.com/fudoline/fudoline/internal/pkg/apperr"
	"github.com/fudoline/fudoline/internal/pkg/openaibatch"
	"github.com/fudoline/fudoline/internal/pkg/usage"
)

const (
	replyMaxTokens = 500
	searchLimit    = 5
	historyDepth   = 10
)

const quotaExceededReply = "申し訳ございません。今月のご利用上限に達しました。プランのアップグレードをご検討ください。"

const chatSystemPrompt = "あなたは不動産会社のアシスタントです。以下の物件情報をもとに、お客様の質問に丁寧な日本語で答えてください。物件情報にないことは推測せず、わからない旨を伝えてください。"

// WebhookPayload is the inbound webhook body from the messaging platform.
type WebhookPayload struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event is one webhook event. Only text message events produce a reply.
type Event struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

// ChannelResolver looks up the bot channel for an inbound destination.
type ChannelResolver interface {
	GetByChannelID(channelID string) (*models.BotChannel, error)
}

// PropertySearcher retrieves listings relevant to a user question.
type PropertySearcher interface {
	Search(tenantID, query string, limit int) ([]models.Property, error)
}

// ChatClient runs one synchronous chat completion.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, messages []openaibatch.ChatMessage, maxTokens int) (string, int, error)
}

// ReplySender delivers the reply back to the messaging platform.
type ReplySender interface {
	Reply(ctx context.Context, accessToken, replyToken, text string) error
}

// HistoryStore keeps the recent exchange per channel and user so the model
// can follow the conversation.
type HistoryStore interface {
	Load(channelID, userID string) []openaibatch.ChatMessage
	Append(channelID, userID string, messages ...openaibatch.ChatMessage)
}

// Responder answers end-customer questions on a messaging channel using
// the tenant's listing data. Replies are metered against the tenant's
// token ledger.
type Responder struct {
	channels   ChannelResolver
	properties PropertySearcher
	usage      *usage.Service
	chat       ChatClient
	sender     ReplySender
	history    HistoryStore
}

// NewResponder wires a responder.
func NewResponder(channels ChannelResolver, properties PropertySearcher, usageSvc *usage.Service, chat ChatClient, sender ReplySender, history HistoryStore) *Responder {
	return &Responder{
		channels:   channels,
		properties: properties,
		usage:      usageSvc,
		chat:       chat,
		sender:     sender,
		history:    history,
	}
}

// HandleWebhook verifies and processes one webhook delivery. The signature
// is checked against the channel secret resolved from the destination, so
// the body must be the raw bytes as received.
func (r *Responder) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return apperr.Validation("malformed webhook payload")
	}
	if payload.Destination == "" {
		return apperr.Validation("webhook payload has no destination")
	}

	channel, err := r.channels.GetByChannelID(payload.Destination)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("unknown bot channel")
		}
		return fmt.Errorf("resolve bot channel: %w", err)
	}
	if !channel.Active {
		return apperr.NotFound("bot channel is disabled")
	}
	if !VerifySignature(channel.ChannelSecret, body, signature) {
		return apperr.Authorization("invalid webhook signature")
	}

	for _, event := range payload.Events {
		if event.Type != "message" || event.Message.Type != "text" || event.ReplyToken == "" {
			continue
		}
		if err := r.handleMessage(ctx, channel, &event); err != nil {
			// One bad event must not fail the whole delivery; the
			// platform would redeliver everything.
			log.Errorf("[BotReply] channel=%s event failed: %v", channel.ChannelID, err)
		}
	}
	return nil
}

func (r *Responder) handleMessage(ctx context.Context, channel *models.BotChannel, event *Event) error {
	ledger, err := r.usage.Remaining(channel.TenantID)
	if err != nil {
		return err
	}
	if ledger.Remaining() == 0 {
		return r.sender.Reply(ctx, channel.AccessToken, event.ReplyToken, quotaExceededReply)
	}

	listings, err := r.properties.Search(channel.TenantID, event.Message.Text, searchLimit)
	if err != nil {
		return fmt.Errorf("search listings: %w", err)
	}

	messages := []openaibatch.ChatMessage{
		{Role: "system", Content: chatSystemPrompt + "\n\n" + formatListings(listings)},
	}
	messages = append(messages, r.history.Load(channel.ChannelID, event.Source.UserID)...)
	userMsg := openaibatch.ChatMessage{Role: "user", Content: event.Message.Text}
	messages = append(messages, userMsg)

	answer, tokens, err := r.chat.CreateChatCompletion(ctx, messages, replyMaxTokens)
	if err != nil {
		return apperr.Upstream("chat completion failed", err)
	}

	if err := r.usage.Consume(channel.TenantID, int64(tokens)); err != nil {
		if apperr.Is(err, apperr.KindQuotaExceeded) {
			// The answer is already generated; deliver it and let the
			// next message hit the quota gate.
			log.Warnf("[BotReply] tenant=%s crossed quota mid-reply", channel.TenantID)
		} else {
			return err
		}
	}

	r.history.Append(channel.ChannelID, event.Source.UserID,
		userMsg,
		openaibatch.ChatMessage{Role: "assistant", Content: answer},
	)

	return r.sender.Reply(ctx, channel.AccessToken, event.ReplyToken, answer)
}

func formatListings(listings []models.Property) string {
	if len(listings) == 0 {
		return "該当する物件情報はありません。"
	}
	var sb strings.Builder
	sb.WriteString("物件情報:\n")
	for i := range listings {
		p := &listings[i]
		sb.WriteString(fmt.Sprintf("- %s / %s / %s", p.Name, p.Address, p.PropertyType))
		if p.Price != nil {
			sb.WriteString(fmt.Sprintf(" / %.0f万円", *p.Price))
		}
		if p.Size != nil {
			sb.WriteString(fmt.Sprintf(" / %.1f平米", *p.Size))
		}
		if p.AIDescription != nil && *p.AIDescription != "" {
			sb.WriteString(" / " + *p.AIDescription)
		} else if p.Description != nil && *p.Description != "" {
			sb.WriteString(" / " + *p.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
