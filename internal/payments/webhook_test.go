package payments

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"event":"transfer.processed","payload":{"transfer_id":"trf_1"}}`)
	secret := "whsec_test"

	signature := SignWebhookPayload(payload, secret)
	assert.True(t, VerifyWebhookSignature(payload, signature, secret))

	// Подпись другим секретом не проходит
	assert.False(t, VerifyWebhookSignature(payload, SignWebhookPayload(payload, "other"), secret))

	// Измененное тело ломает подпись
	assert.False(t, VerifyWebhookSignature([]byte(`{"event":"x"}`), signature, secret))

	assert.False(t, VerifyWebhookSignature(payload, "", secret))
	assert.False(t, VerifyWebhookSignature(payload, "not-hex", secret))
}

func TestWebhookEventParsing(t *testing.T) {
	raw := []byte(`{
		"event": "transfer.failed",
		"payload": {"transfer_id": "trf_9", "recipient_id": "u1", "amount": 1000, "reason": "account closed"}
	}`)

	var event WebhookEvent
	require.NoError(t, json.Unmarshal(raw, &event))
	assert.Equal(t, EventTransferFailed, event.Type)

	var data TransferEventData
	require.NoError(t, json.Unmarshal(event.Data, &data))
	assert.Equal(t, "trf_9", data.TransferRef)
	assert.Equal(t, int64(1000), data.AmountPaise)
	assert.Equal(t, "account closed", data.Reason)
}

func TestAuthorizationStateReusable(t *testing.T) {
	assert.True(t, AuthStateCreated.Reusable())
	assert.True(t, AuthStateAuthorized.Reusable())
	assert.False(t, AuthStateCaptured.Reusable())
	assert.False(t, AuthStateFailed.Reusable())
	assert.False(t, AuthStateExpired.Reusable())
	assert.False(t, AuthStateRefunded.Reusable())
}
