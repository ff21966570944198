package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/service"
)

// PaymentHandler handles payment-related HTTP requests.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// submitPaymentRequest represents the request body for submitting a payment.
type submitPaymentRequest struct {
	PayerID     string            `json:"payer_id" binding:"required"`
	PayeeID     string            `json:"payee_id"`
	RideID      string            `json:"ride_id"`
	Amount      int64             `json:"amount" binding:"required"`
	Provider    string            `json:"provider" binding:"required"`
	PhoneNumber string            `json:"phone_number"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

// submitPaymentResponse represents the acceptance of a payment submission.
type submitPaymentResponse struct {
	Success             bool      `json:"success"`
	TransactionID       string    `json:"transaction_id"`
	Status              string    `json:"status"`
	EstimatedCompletion time.Time `json:"estimated_completion,omitempty"`
}

// SubmitPayment handles POST /v1/payments.
// Mobile-money submissions are accepted for asynchronous processing and
// answered with 202; cash settles immediately and is answered with 200.
func (h *PaymentHandler) SubmitPayment(c *gin.Context) {
	var req submitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrMissingField)
		return
	}

	result, err := h.payments.Submit(c.Request.Context(), &service.SubmitRequest{
		PayerID:     req.PayerID,
		PayeeID:     req.PayeeID,
		RideID:      req.RideID,
		Amount:      req.Amount,
		Provider:    domain.Provider(req.Provider),
		PhoneNumber: req.PhoneNumber,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusAccepted
	if result.Status == domain.StatusCompleted {
		status = http.StatusOK
	}

	respondJSON(c, status, submitPaymentResponse{
		Success:             result.Success,
		TransactionID:       result.TransactionID,
		Status:              string(result.Status),
		EstimatedCompletion: result.EstimatedCompletion,
	})
}

// GetPayment handles GET /v1/payments/:id.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	snap, err := h.payments.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, snap)
}

// paymentView is the API representation of a transaction.
type paymentView struct {
	TransactionID     string     `json:"transaction_id"`
	Type              string     `json:"type"`
	PayerID           string     `json:"payer_id"`
	RideID            string     `json:"ride_id,omitempty"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	Provider          string     `json:"provider"`
	ProviderReference string     `json:"provider_reference,omitempty"`
	Status            string     `json:"status"`
	FailureReason     string     `json:"failure_reason,omitempty"`
	RetryCount        int        `json:"retry_count"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

func viewOf(tx *domain.Transaction) paymentView {
	return paymentView{
		TransactionID:     tx.ID,
		Type:              string(tx.Type),
		PayerID:           tx.PayerID,
		RideID:            tx.RideID,
		Amount:            tx.Amount,
		Currency:          tx.Currency,
		Provider:          string(tx.Provider),
		ProviderReference: tx.ProviderTransactionID,
		Status:            string(tx.Status),
		FailureReason:     tx.FailureReason,
		RetryCount:        tx.RetryCount,
		CreatedAt:         tx.CreatedAt,
		CompletedAt:       tx.CompletedAt,
	}
}

// ListPayments handles GET /v1/payments?payer_id=&limit=.
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	payerID := c.Query("payer_id")
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	transactions, err := h.payments.ListByPayer(c.Request.Context(), payerID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]paymentView, 0, len(transactions))
	for _, tx := range transactions {
		views = append(views, viewOf(tx))
	}
	respondJSON(c, http.StatusOK, gin.H{"payments": views})
}

// CancelPayment handles POST /v1/payments/:id/cancel.
func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	tx, err := h.payments.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, viewOf(tx))
}
