package service

import "github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"

// ProviderFee returns the collection fee a provider charges for an amount,
// in minor currency units. Small amounts carry a flat fee, larger ones a
// percentage.
func ProviderFee(provider domain.Provider, amount int64) int64 {
	switch provider {
	case domain.ProviderMTN:
		switch {
		case amount <= 1000:
			return 50
		case amount <= 5000:
			return 100
		default:
			return amount * 2 / 100
		}
	case domain.ProviderAirtel:
		switch {
		case amount <= 1000:
			return 40
		case amount <= 5000:
			return 90
		default:
			return amount * 18 / 1000
		}
	default:
		return 0
	}
}
