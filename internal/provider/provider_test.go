package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/config"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("dispatch: %w", &Error{Kind: FailureInsufficientFunds, Message: "no funds"})
	if got := KindOf(wrapped); got != FailureInsufficientFunds {
		t.Errorf("expected insufficient_funds through wrapping, got %s", got)
	}

	if got := KindOf(errors.New("plain")); got != FailureUnclassified {
		t.Errorf("expected unclassified for a plain error, got %s", got)
	}
}

func TestValidatePhoneNumber_PrefixRules(t *testing.T) {
	t.Parallel()

	mtn := NewMTNGateway(config.MTNConfig{})
	airtel := NewAirtelGateway(config.AirtelConfig{})

	testCases := []struct {
		phone    string
		mtnValid bool
		airtelOK bool
	}{
		{"+250781234567", true, false},
		{"+250731234567", false, true},
		{"+250721234567", false, false},
		{"0781234567", false, false},
		{"", false, false},
	}

	for _, tc := range testCases {
		if got := mtn.ValidatePhoneNumber(tc.phone); got != tc.mtnValid {
			t.Errorf("mtn.ValidatePhoneNumber(%q) = %v, want %v", tc.phone, got, tc.mtnValid)
		}
		if got := airtel.ValidatePhoneNumber(tc.phone); got != tc.airtelOK {
			t.Errorf("airtel.ValidatePhoneNumber(%q) = %v, want %v", tc.phone, got, tc.airtelOK)
		}
	}
}

func TestClassifyMTNReason(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		reason string
		want   FailureKind
	}{
		{"NOT_ENOUGH_FUNDS", FailureInsufficientFunds},
		{"PAYER_LIMIT_REACHED", FailureInsufficientFunds},
		{"PAYER_NOT_FOUND", FailureInvalidAccount},
		{"INVALID_MSISDN", FailureInvalidAccount},
		{"SERVICE_UNAVAILABLE", FailureProviderDown},
		{"INTERNAL_PROCESSING_ERROR", FailureProviderDown},
		{"SOMETHING_ELSE", FailureUnclassified},
	}

	for _, tc := range testCases {
		err := classifyMTNReason(mtnResponse{Reason: tc.reason}, http.StatusBadRequest)
		if err.Kind != tc.want {
			t.Errorf("classifyMTNReason(%s) = %s, want %s", tc.reason, err.Kind, tc.want)
		}
	}
}

func TestClassifyAirtelCode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		code string
		want FailureKind
	}{
		{"ESB000008", FailureInsufficientFunds},
		{"DP00800001005", FailureInsufficientFunds},
		{"ESB000004", FailureInvalidAccount},
		{"ESB000014", FailureProviderDown},
		{"ESB999999", FailureUnclassified},
	}

	for _, tc := range testCases {
		var resp airtelResponse
		resp.Status.Code = tc.code
		err := classifyAirtelCode(resp, http.StatusBadRequest)
		if err.Kind != tc.want {
			t.Errorf("classifyAirtelCode(%s) = %s, want %s", tc.code, err.Kind, tc.want)
		}
	}
}

func TestMTNRequestPayment_Accepted(t *testing.T) {
	t.Parallel()

	var gotReference string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReference = r.Header.Get("X-Reference-Id")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	gw := NewMTNGateway(config.MTNConfig{BaseURL: server.URL, RequestTimeout: time.Second})

	res, err := gw.RequestPayment(context.Background(), "+250781234567", 5000, "ext-1", "ride fare")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	// MTN echoes nothing on 202; the external ID is the reference.
	if res.ProviderTransactionID != "ext-1" {
		t.Errorf("expected reference ext-1, got %s", res.ProviderTransactionID)
	}
	if gotReference != "ext-1" {
		t.Errorf("expected X-Reference-Id ext-1, got %s", gotReference)
	}
}

func TestMTNRequestPayment_ServerError_ProviderDown(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	gw := NewMTNGateway(config.MTNConfig{BaseURL: server.URL, RequestTimeout: time.Second})

	_, err := gw.RequestPayment(context.Background(), "+250781234567", 5000, "ext-2", "")
	if KindOf(err) != FailureProviderDown {
		t.Fatalf("expected provider_down, got: %v", err)
	}
}

func TestRegistry_AlternatesExcludeUnregistered(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(NewMTNGateway(config.MTNConfig{}))

	if alts := registry.Alternates(domain.ProviderMTN); len(alts) != 0 {
		t.Errorf("expected no alternates without Airtel registered, got %v", alts)
	}

	registry = NewRegistry(NewMTNGateway(config.MTNConfig{}), NewAirtelGateway(config.AirtelConfig{}))
	alts := registry.Alternates(domain.ProviderMTN)
	if len(alts) != 1 || alts[0] != domain.ProviderAirtel {
		t.Errorf("expected Airtel as the MTN alternate, got %v", alts)
	}
}
