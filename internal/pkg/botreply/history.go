package botreply

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/fudoline/fudoline/internal/pkg/cache"
	"github.com/fudoline/fudoline/internal/pkg/openaibatch"
)

const historyTTL = 1 * time.Hour

// cacheHistory keeps conversation history in the cache server. Losing a
// history entry only costs conversational context, so cache failures are
// logged and swallowed.
type cacheHistory struct{}

// NewCacheHistory returns the cache-backed history store.
func NewCacheHistory() HistoryStore {
	return &cacheHistory{}
}

func historyKey(channelID, userID string) string {
	return fmt.Sprintf("botreply:history:%s:%s", channelID, userID)
}

func (h *cacheHistory) Load(channelID, userID string) []openaibatch.ChatMessage {
	raw, err := cache.Get(historyKey(channelID, userID))
	if err != nil {
		return nil
	}
	var messages []openaibatch.ChatMessage
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		log.Warnf("[BotReply] dropping corrupt history for %s", channelID)
		return nil
	}
	return messages
}

func (h *cacheHistory) Append(channelID, userID string, messages ...openaibatch.ChatMessage) {
	all := append(h.Load(channelID, userID), messages...)
	if len(all) > historyDepth {
		all = all[len(all)-historyDepth:]
	}
	raw, err := json.Marshal(all)
	if err != nil {
		return
	}
	if err := cache.Set(historyKey(channelID, userID), string(raw), historyTTL); err != nil {
		log.Warnf("[BotReply] failed to store history for %s: %v", channelID, err)
	}
}
