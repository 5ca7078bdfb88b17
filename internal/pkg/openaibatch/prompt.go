package openaibatch

import (
	"fmt"
	"strings"

	"github.com/fudoline/fudoline/app/models"
)

// customIDPrefix ties a batch line item back to the property it describes.
const customIDPrefix = "property-"

const systemPrompt = "あなたは不動産の専門ライターです。物件情報をもとに、購入希望者の心に響く魅力的な物件紹介文を200文字以内で作成してください。誇張表現は避け、物件の特徴を具体的に伝えてください。"

// CustomID returns the batch line identifier for a property.
func CustomID(propertyID string) string {
	return customIDPrefix + propertyID
}

// PropertyIDFromCustomID extracts the property id from a batch line
// identifier. Returns false for identifiers produced elsewhere.
func PropertyIDFromCustomID(customID string) (string, bool) {
	if !strings.HasPrefix(customID, customIDPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(customID, customIDPrefix)
	if id == "" {
		return "", false
	}
	return id, true
}

// BuildRequest assembles the chat-completion line item for one property.
// Optional fields are only included in the prompt when present.
func BuildRequest(model string, property *models.Property) BatchRequest {
	var sb strings.Builder
	sb.WriteString("以下の物件の紹介文を作成してください。\n\n")
	sb.WriteString(fmt.Sprintf("物件名: %s\n", property.Name))
	sb.WriteString(fmt.Sprintf("住所: %s\n", property.Address))
	sb.WriteString(fmt.Sprintf("物件種別: %s\n", property.PropertyType))
	if property.Price != nil {
		sb.WriteString(fmt.Sprintf("価格: %.0f万円\n", *property.Price))
	}
	if property.Size != nil {
		sb.WriteString(fmt.Sprintf("面積: %.1f平米\n", *property.Size))
	}
	if property.Rooms != nil {
		sb.WriteString(fmt.Sprintf("間取り: %.0f部屋\n", *property.Rooms))
	}
	if property.Description != nil && *property.Description != "" {
		sb.WriteString(fmt.Sprintf("既存の説明: %s\n", *property.Description))
	}

	return BatchRequest{
		CustomID: CustomID(property.ID),
		Method:   "POST",
		URL:      "/v1/chat/completions",
		Body: RequestBody{
			Model: model,
			Messages: []ChatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: sb.String()},
			},
			MaxTokens:   300,
			Temperature: 0.7,
		},
	}
}
