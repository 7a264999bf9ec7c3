package geocode

import (
	"commute-route-service/internal/domain"
	"commute-route-service/internal/platform/httpx"
	"commute-route-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MinPacingInterval is the smallest gap allowed between two provider calls.
const MinPacingInterval = time.Second

// providerAttempts bounds retries of transient provider failures.
const providerAttempts = 3

// PacedResolver serializes calls to a geocoding provider and spaces them at
// least one interval apart. One instance is meant to be shared by the whole
// process. When the provider can suggest alternatives, a failed resolution is
// followed by a (paced) suggestion lookup whose results are attached to the
// returned *domain.AddressResolutionFailure.
type PacedResolver struct {
	inner       ports.GeoResolver
	suggester   ports.SuggestionProvider
	suggestions int
	callTimeout time.Duration

	mu      sync.Mutex
	limiter *rate.Limiter
}

func NewPacedResolver(
	inner ports.GeoResolver,
	minInterval time.Duration,
	suggestions int,
	callTimeout time.Duration,
) (*PacedResolver, error) {
	if inner == nil {
		return nil, errors.New("paced resolver: inner resolver is nil")
	}
	if minInterval < MinPacingInterval {
		return nil, fmt.Errorf("paced resolver: interval %s is below the %s minimum", minInterval, MinPacingInterval)
	}
	return newPacedResolver(inner, minInterval, suggestions, callTimeout), nil
}

func newPacedResolver(inner ports.GeoResolver, interval time.Duration, suggestions int, callTimeout time.Duration) *PacedResolver {
	p := &PacedResolver{
		inner:       inner,
		suggestions: suggestions,
		callTimeout: callTimeout,
		limiter:     rate.NewLimiter(rate.Every(interval), 1),
	}
	if s, ok := inner.(ports.SuggestionProvider); ok {
		p.suggester = s
	}
	return p
}

func (p *PacedResolver) Resolve(ctx context.Context, address string) (ports.GeoMatch, error) {
	var match ports.GeoMatch
	err := p.paced(ctx, func(callCtx context.Context) error {
		var err error
		match, err = p.inner.Resolve(callCtx, address)
		return err
	})
	if err == nil {
		return match, nil
	}

	var failure *domain.AddressResolutionFailure
	if !errors.As(err, &failure) || !errors.Is(err, domain.ErrAddressNotFound) {
		return ports.GeoMatch{}, err
	}

	if p.suggester != nil && p.suggestions > 0 && len(failure.Suggestions) == 0 {
		cands, serr := p.Suggest(ctx, address, p.suggestions)
		if serr != nil {
			log.Printf("op=geocode.suggest address=%q err=%v", address, serr)
		} else {
			failure.Suggestions = cands
		}
	}
	return ports.GeoMatch{}, failure
}

func (p *PacedResolver) Suggest(ctx context.Context, address string, limit int) ([]domain.Candidate, error) {
	if p.suggester == nil {
		return nil, nil
	}

	var cands []domain.Candidate
	err := p.paced(ctx, func(callCtx context.Context) error {
		var err error
		cands, err = p.suggester.Suggest(callCtx, address, limit)
		return err
	})
	return cands, err
}

// paced runs call with the per-call timeout, which starts only once a
// pacing slot is granted. Transient failures are retried, each attempt
// waiting for its own slot.
func (p *PacedResolver) paced(ctx context.Context, call func(context.Context) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	for attempt := 1; attempt <= providerAttempts; attempt++ {
		if werr := p.limiter.Wait(ctx); werr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("geocode pacing: %w", werr)
		}

		err = p.attempt(ctx, call)
		if err == nil || !httpx.Retryable(err) || ctx.Err() != nil {
			return err
		}
		log.Printf("op=geocode.retry attempt=%d err=%v", attempt, err)
	}
	return err
}

func (p *PacedResolver) attempt(ctx context.Context, call func(context.Context) error) error {
	if p.callTimeout <= 0 {
		return call(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	return call(callCtx)
}
