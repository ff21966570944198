package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/config"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
)

// airtelPrefix is the Rwanda Airtel numbering plan prefix.
const airtelPrefix = "+25073"

// AirtelGateway integrates with the Airtel Money merchant payments API.
type AirtelGateway struct {
	cfg    config.AirtelConfig
	client *http.Client
}

// NewAirtelGateway creates a new Airtel Money gateway.
func NewAirtelGateway(cfg config.AirtelConfig) *AirtelGateway {
	return &AirtelGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

func (g *AirtelGateway) Name() domain.Provider { return domain.ProviderAirtel }

// ValidatePhoneNumber checks the number against the Airtel Rwanda prefix rule.
func (g *AirtelGateway) ValidatePhoneNumber(phone string) bool {
	return strings.HasPrefix(phone, airtelPrefix)
}

type airtelPaymentRequest struct {
	Reference   string            `json:"reference"`
	Subscriber  airtelSubscriber  `json:"subscriber"`
	Transaction airtelTransaction `json:"transaction"`
}

type airtelSubscriber struct {
	Country  string `json:"country"`
	Currency string `json:"currency"`
	MSISDN   string `json:"msisdn"`
}

type airtelTransaction struct {
	Amount   string `json:"amount"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
	ID       string `json:"id"`
}

type airtelResponse struct {
	Data struct {
		Transaction struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"transaction"`
	} `json:"data"`
	Status struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
}

// RequestPayment issues a merchant payment. Airtel de-duplicates on the
// transaction id, so the externalID is sent as both reference and id.
func (g *AirtelGateway) RequestPayment(ctx context.Context, phone string, amount int64, externalID, note string) (*RequestResult, error) {
	body, err := json.Marshal(airtelPaymentRequest{
		Reference: note,
		Subscriber: airtelSubscriber{
			Country:  "RW",
			Currency: "RWF",
			MSISDN:   phone,
		},
		Transaction: airtelTransaction{
			Amount:   strconv.FormatInt(amount, 10),
			Country:  "RW",
			Currency: "RWF",
			ID:       externalID,
		},
	})
	if err != nil {
		return nil, &Error{Kind: FailureUnclassified, Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/merchant/v1/payments/", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: FailureUnclassified, Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.ClientSecret)
	req.Header.Set("X-Country", "RW")
	req.Header.Set("X-Currency", "RWF")
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, transportError("airtel payment", err)
	}
	defer resp.Body.Close()

	var decoded airtelResponse
	_ = json.NewDecoder(resp.Body).Decode(&decoded)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		ref := decoded.Data.Transaction.ID
		if ref == "" {
			ref = externalID
		}
		return &RequestResult{ProviderTransactionID: ref}, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &Error{Kind: FailureProviderDown, Message: fmt.Sprintf("airtel returned %d", resp.StatusCode)}
	default:
		return nil, classifyAirtelCode(decoded, resp.StatusCode)
	}
}

// classifyAirtelCode maps Airtel status codes onto failure kinds.
func classifyAirtelCode(resp airtelResponse, httpStatus int) *Error {
	switch resp.Status.Code {
	case "ESB000008", "DP00800001005": // insufficient balance codes
		return &Error{Kind: FailureInsufficientFunds, Message: resp.Status.Message}
	case "ESB000004", "DP00800001003": // invalid/unknown subscriber
		return &Error{Kind: FailureInvalidAccount, Message: resp.Status.Message}
	case "ESB000014": // service temporarily unavailable
		return &Error{Kind: FailureProviderDown, Message: resp.Status.Message}
	default:
		return &Error{Kind: FailureUnclassified, Message: fmt.Sprintf("airtel rejected request (%d): %s", httpStatus, resp.Status.Message)}
	}
}

// CheckStatus polls the merchant payment resource for its current state.
func (g *AirtelGateway) CheckStatus(ctx context.Context, providerTxID string) (*StatusResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.cfg.BaseURL+"/standard/v1/payments/"+providerTxID, nil)
	if err != nil {
		return nil, &Error{Kind: FailureUnclassified, Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.ClientSecret)
	req.Header.Set("X-Country", "RW")
	req.Header.Set("X-Currency", "RWF")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, transportError("airtel status check", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &Error{Kind: FailureProviderDown, Message: fmt.Sprintf("airtel returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: FailureUnclassified, Message: fmt.Sprintf("airtel status check returned %d", resp.StatusCode)}
	}

	var decoded airtelResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &Error{Kind: FailureUnclassified, Message: "decode status response", Err: err}
	}

	switch decoded.Data.Transaction.Status {
	case "TS", "SUCCESSFUL":
		return &StatusResult{Status: StatusSuccessful}, nil
	case "TF", "FAILED":
		return &StatusResult{Status: StatusFailed, Reason: decoded.Status.Message}, nil
	default:
		return &StatusResult{Status: StatusPending}, nil
	}
}
