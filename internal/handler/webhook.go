package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/provider"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/repository"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/service"
)

const signatureHeader = "X-Webhook-Signature"

// WebhookHandler receives provider callbacks for in-flight payments.
type WebhookHandler struct {
	engine *service.Engine
	secret string
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(engine *service.Engine, secret string) *WebhookHandler {
	return &WebhookHandler{engine: engine, secret: secret}
}

// webhookPayload is the callback body shared by both providers.
type webhookPayload struct {
	ProviderTransactionID string `json:"provider_transaction_id" binding:"required"`
	Status                string `json:"status" binding:"required"`
	Reason                string `json:"reason"`
	Amount                int64  `json:"amount"`
	Reference             string `json:"reference"`
	Timestamp             string `json:"timestamp"`
}

// HandleCallback handles POST /v1/webhooks/:provider.
// The raw body is authenticated with an HMAC-SHA256 signature before any
// parsing, and a callback carrying an amount must match the stored
// transaction. Callbacks for transactions already in a terminal state are
// acknowledged without applying anything.
func (h *WebhookHandler) HandleCallback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable body"})
		return
	}

	if !h.verifySignature(body, c.GetHeader(signatureHeader)) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid signature"})
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.ProviderTransactionID == "" || payload.Status == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid payload"})
		return
	}

	status := mapCallbackStatus(payload.Status)

	tx, applied, err := h.engine.ApplyProviderStatus(c.Request.Context(), payload.ProviderTransactionID, status, payload.Reason, payload.Amount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown provider reference"})
			return
		}
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"applied":        applied,
		"transaction_id": tx.ID,
		"status":         tx.Status,
	})
}

// verifySignature checks the hex HMAC-SHA256 of the raw body.
func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if h.secret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// mapCallbackStatus normalizes provider callback statuses.
func mapCallbackStatus(raw string) provider.Status {
	switch raw {
	case "SUCCESS", "SUCCESSFUL", "TS":
		return provider.StatusSuccessful
	case "FAILED", "FAILURE", "TF":
		return provider.StatusFailed
	default:
		return provider.StatusPending
	}
}
