package botreply

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"events":[]}`)
	secret := "channel-secret"

	assert.True(t, VerifySignature(secret, body, sign(secret, body)))
	assert.False(t, VerifySignature(secret, body, sign("other-secret", body)))
	assert.False(t, VerifySignature(secret, []byte(`{"events":[1]}`), sign(secret, body)))
	assert.False(t, VerifySignature(secret, body, ""))
	assert.False(t, VerifySignature("", body, sign(secret, body)))
}
