package service

import (
	"testing"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
)

func TestProviderFee(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		provider domain.Provider
		amount   int64
		want     int64
	}{
		{domain.ProviderMTN, 500, 50},
		{domain.ProviderMTN, 1000, 50},
		{domain.ProviderMTN, 5000, 100},
		{domain.ProviderMTN, 50000, 1000},
		{domain.ProviderAirtel, 500, 40},
		{domain.ProviderAirtel, 5000, 90},
		{domain.ProviderAirtel, 50000, 900},
		{domain.ProviderCash, 5000, 0},
	}

	for _, tc := range testCases {
		if got := ProviderFee(tc.provider, tc.amount); got != tc.want {
			t.Errorf("ProviderFee(%s, %d) = %d, want %d", tc.provider, tc.amount, got, tc.want)
		}
	}
}

func TestCodeForError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		err  error
		want string
	}{
		{ErrInvalidAmount, domain.CodeInvalidAmount},
		{ErrAmountLimitExceeded, domain.CodeAmountLimitExceeded},
		{ErrRateLimitExceeded, domain.CodeRateLimitExceeded},
		{ErrProviderUnavailable, domain.CodeProviderUnavailable},
		{ErrMissingPhoneNumber, domain.CodeMissingPhoneNumber},
		{ErrInvalidPhoneNumber, domain.CodeInvalidPhoneNumber},
	}

	for _, tc := range testCases {
		if got := CodeForError(tc.err); got != tc.want {
			t.Errorf("CodeForError(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
