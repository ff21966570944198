package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
)

// alternates lists the failover candidates per provider.
var alternates = map[domain.Provider][]domain.Provider{
	domain.ProviderMTN:    {domain.ProviderAirtel},
	domain.ProviderAirtel: {domain.ProviderMTN},
}

// Registry holds the configured gateways, each wrapped in a circuit breaker
// so a flapping provider is short-circuited instead of hammered.
type Registry struct {
	gateways map[domain.Provider]Gateway
}

// NewRegistry wraps and registers the given gateways.
func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[domain.Provider]Gateway, len(gateways))}
	for _, gw := range gateways {
		r.gateways[gw.Name()] = newBreakerGateway(gw)
	}
	return r
}

// Get returns the gateway for a provider.
func (r *Registry) Get(p domain.Provider) (Gateway, bool) {
	gw, ok := r.gateways[p]
	return gw, ok
}

// Supported reports whether the provider has a registered gateway.
func (r *Registry) Supported(p domain.Provider) bool {
	_, ok := r.gateways[p]
	return ok
}

// Alternates returns the failover candidates for a provider, in preference order.
func (r *Registry) Alternates(p domain.Provider) []domain.Provider {
	var out []domain.Provider
	for _, alt := range alternates[p] {
		if r.Supported(alt) {
			out = append(out, alt)
		}
	}
	return out
}

// breakerGateway decorates a Gateway with a gobreaker circuit breaker.
// Only infrastructure failures (network, provider down) count against the
// breaker; business rejections like insufficient funds are successful calls
// from the provider's availability standpoint.
type breakerGateway struct {
	inner   Gateway
	breaker *gobreaker.CircuitBreaker
}

func newBreakerGateway(inner Gateway) *breakerGateway {
	settings := gobreaker.Settings{
		Name:        string(inner.Name()),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			kind := KindOf(err)
			return kind != FailureNetwork && kind != FailureProviderDown
		},
	}
	return &breakerGateway{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (g *breakerGateway) Name() domain.Provider { return g.inner.Name() }

func (g *breakerGateway) ValidatePhoneNumber(phone string) bool {
	return g.inner.ValidatePhoneNumber(phone)
}

func (g *breakerGateway) RequestPayment(ctx context.Context, phone string, amount int64, externalID, note string) (*RequestResult, error) {
	res, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.RequestPayment(ctx, phone, amount, externalID, note)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return res.(*RequestResult), nil
}

func (g *breakerGateway) CheckStatus(ctx context.Context, providerTxID string) (*StatusResult, error) {
	res, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.CheckStatus(ctx, providerTxID)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return res.(*StatusResult), nil
}

// wrapBreakerErr converts an open-breaker rejection into a provider-down
// failure so callers route it through the downtime policy.
func wrapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &Error{Kind: FailureProviderDown, Message: "circuit breaker open", Err: err}
	}
	return err
}
