package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/config"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
)

// mtnPrefix is the Rwanda MTN numbering plan prefix.
const mtnPrefix = "+25078"

// MTNGateway integrates with the MTN Mobile Money collections API.
type MTNGateway struct {
	cfg    config.MTNConfig
	client *http.Client
}

// NewMTNGateway creates a new MTN Mobile Money gateway.
func NewMTNGateway(cfg config.MTNConfig) *MTNGateway {
	return &MTNGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

func (g *MTNGateway) Name() domain.Provider { return domain.ProviderMTN }

// ValidatePhoneNumber checks the number against the MTN Rwanda prefix rule.
func (g *MTNGateway) ValidatePhoneNumber(phone string) bool {
	return strings.HasPrefix(phone, mtnPrefix)
}

type mtnPaymentRequest struct {
	Amount       string   `json:"amount"`
	Currency     string   `json:"currency"`
	ExternalID   string   `json:"externalId"`
	Payer        mtnPayer `json:"payer"`
	PayerMessage string   `json:"payerMessage"`
	PayeeNote    string   `json:"payeeNote"`
}

type mtnPayer struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

type mtnResponse struct {
	ReferenceID string `json:"referenceId"`
	Status      string `json:"status"`
	Reason      string `json:"reason"`
	Message     string `json:"message"`
}

// RequestPayment issues a request-to-pay. The externalID doubles as the
// X-Reference-Id header, which MTN uses to de-duplicate requests.
func (g *MTNGateway) RequestPayment(ctx context.Context, phone string, amount int64, externalID, note string) (*RequestResult, error) {
	body, err := json.Marshal(mtnPaymentRequest{
		Amount:     strconv.FormatInt(amount, 10),
		Currency:   "RWF",
		ExternalID: externalID,
		Payer: mtnPayer{
			PartyIDType: "MSISDN",
			PartyID:     phone,
		},
		PayerMessage: note,
		PayeeNote:    note,
	})
	if err != nil {
		return nil, &Error{Kind: FailureUnclassified, Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/collection/v1_0/requesttopay", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: FailureUnclassified, Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("X-Reference-Id", externalID)
	req.Header.Set("X-Target-Environment", g.cfg.TargetEnvironment)
	req.Header.Set("Ocp-Apim-Subscription-Key", g.cfg.SubscriptionKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, transportError("mtn request-to-pay", err)
	}
	defer resp.Body.Close()

	var decoded mtnResponse
	_ = json.NewDecoder(resp.Body).Decode(&decoded)

	switch {
	case resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK:
		ref := decoded.ReferenceID
		if ref == "" {
			ref = externalID
		}
		return &RequestResult{ProviderTransactionID: ref}, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &Error{Kind: FailureProviderDown, Message: fmt.Sprintf("mtn returned %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusRequestTimeout:
		return nil, &Error{Kind: FailureNetwork, Message: "mtn request timed out"}
	default:
		return nil, classifyMTNReason(decoded, resp.StatusCode)
	}
}

// classifyMTNReason maps MTN rejection reason codes onto failure kinds.
func classifyMTNReason(resp mtnResponse, httpStatus int) *Error {
	switch resp.Reason {
	case "NOT_ENOUGH_FUNDS", "PAYER_LIMIT_REACHED":
		return &Error{Kind: FailureInsufficientFunds, Message: resp.Message}
	case "PAYER_NOT_FOUND", "INVALID_MSISDN", "PAYEE_NOT_ALLOWED_TO_RECEIVE":
		return &Error{Kind: FailureInvalidAccount, Message: resp.Message}
	case "SERVICE_UNAVAILABLE", "INTERNAL_PROCESSING_ERROR":
		return &Error{Kind: FailureProviderDown, Message: resp.Message}
	default:
		return &Error{Kind: FailureUnclassified, Message: fmt.Sprintf("mtn rejected request (%d): %s", httpStatus, resp.Message)}
	}
}

// CheckStatus polls the request-to-pay resource for its current state.
func (g *MTNGateway) CheckStatus(ctx context.Context, providerTxID string) (*StatusResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.cfg.BaseURL+"/collection/v1_0/requesttopay/"+providerTxID, nil)
	if err != nil {
		return nil, &Error{Kind: FailureUnclassified, Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("X-Target-Environment", g.cfg.TargetEnvironment)
	req.Header.Set("Ocp-Apim-Subscription-Key", g.cfg.SubscriptionKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, transportError("mtn status check", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &Error{Kind: FailureProviderDown, Message: fmt.Sprintf("mtn returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: FailureUnclassified, Message: fmt.Sprintf("mtn status check returned %d", resp.StatusCode)}
	}

	var decoded mtnResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &Error{Kind: FailureUnclassified, Message: "decode status response", Err: err}
	}

	switch decoded.Status {
	case "SUCCESSFUL":
		return &StatusResult{Status: StatusSuccessful}, nil
	case "FAILED":
		return &StatusResult{Status: StatusFailed, Reason: decoded.Reason}, nil
	default:
		return &StatusResult{Status: StatusPending}, nil
	}
}

// transportError classifies client-side transport failures. Timeouts and
// connection errors are retriable network failures.
func transportError(op string, err error) *Error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: FailureNetwork, Message: op + " timed out", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: FailureNetwork, Message: op + " deadline exceeded", Err: err}
	}
	return &Error{Kind: FailureNetwork, Message: op + " transport failure", Err: err}
}
