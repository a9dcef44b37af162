package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Типы асинхронных событий шлюза.
// Доставка at-least-once: события могут дублироваться и приходить не по порядку.
const (
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentFailed     = "payment.failed"
	EventTransferCreated   = "transfer.created"
	EventTransferProcessed = "transfer.processed"
	EventTransferFailed    = "transfer.failed"
)

// WebhookEvent - конверт события от шлюза
type WebhookEvent struct {
	Type string          `json:"event"`
	Data json.RawMessage `json:"payload"`
}

// AuthorizationEventData - payload событий payment.authorized / payment.failed
type AuthorizationEventData struct {
	AuthRef     string `json:"order_id"`
	AmountPaise int64  `json:"amount"`
	Reason      string `json:"reason,omitempty"`
}

// TransferEventData - payload событий transfer.*
type TransferEventData struct {
	TransferRef string `json:"transfer_id"`
	RecipientID string `json:"recipient_id"`
	CampaignID  string `json:"campaign_id,omitempty"`
	AmountPaise int64  `json:"amount"`
	Reason      string `json:"reason,omitempty"`
}

// VerifyWebhookSignature проверяет HMAC-SHA256 подпись сырого тела запроса.
// Сравнение constant-time.
func VerifyWebhookSignature(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignWebhookPayload считает подпись тела (используется в тестах и моках шлюза)
func SignWebhookPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
