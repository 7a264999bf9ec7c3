package geocode

import (
	"commute-route-service/internal/domain"
	"commute-route-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"log"
)

// CorrectingResolver resolves addresses through a per-run corrections book.
//
// Validated addresses reuse their recorded coordinates. Corrected addresses
// are resolved through the chosen candidate or the replacement text and then
// validated. Failures are recorded as unresolved, with suggestions offered
// when the inner resolver returned any. Failures are reported under the
// original address so the caller can correct it.
type CorrectingResolver struct {
	inner ports.GeoResolver
	book  *domain.Corrections
}

func NewCorrectingResolver(inner ports.GeoResolver, book *domain.Corrections) *CorrectingResolver {
	if book == nil {
		book = domain.NewCorrections()
	}
	return &CorrectingResolver{inner: inner, book: book}
}

func (c *CorrectingResolver) Corrections() *domain.Corrections { return c.book }

func (c *CorrectingResolver) Resolve(ctx context.Context, address string) (ports.GeoMatch, error) {
	entry, ok := c.book.Lookup(address)
	if ok {
		switch entry.State {
		case domain.StateValidated:
			if entry.Resolved != nil {
				return ports.GeoMatch{Coord: *entry.Resolved, DisplayName: entry.Replacement}, nil
			}
		case domain.StateCorrected:
			if entry.Chosen != nil {
				c.validate(address, entry.Chosen.Coord)
				return ports.GeoMatch{Coord: entry.Chosen.Coord, DisplayName: entry.Chosen.DisplayName}, nil
			}
			return c.resolve(ctx, address, entry.Replacement)
		}
	}
	return c.resolve(ctx, address, address)
}

func (c *CorrectingResolver) resolve(ctx context.Context, original, query string) (ports.GeoMatch, error) {
	match, err := c.inner.Resolve(ctx, query)
	if err == nil {
		if query != original {
			c.validate(original, match.Coord)
		}
		return match, nil
	}

	if !errors.Is(err, domain.ErrAddressNotFound) {
		return ports.GeoMatch{}, err
	}

	var suggestions []domain.Candidate
	var failure *domain.AddressResolutionFailure
	if errors.As(err, &failure) {
		suggestions = failure.Suggestions
	}

	if merr := c.book.MarkUnresolved(original); merr != nil {
		log.Printf("op=geocode.correction address=%q err=%v", original, merr)
	}
	if len(suggestions) > 0 {
		if oerr := c.book.OfferSuggestions(original, suggestions); oerr != nil {
			log.Printf("op=geocode.correction address=%q err=%v", original, oerr)
		}
	}

	if query == original && failure != nil {
		return ports.GeoMatch{}, failure
	}
	return ports.GeoMatch{}, &domain.AddressResolutionFailure{
		Address:     original,
		Suggestions: suggestions,
		Err:         fmt.Errorf("replacement %q: %w", query, domain.ErrAddressNotFound),
	}
}

func (c *CorrectingResolver) validate(address string, coord domain.Coordinates) {
	if err := c.book.Validate(address, coord); err != nil {
		log.Printf("op=geocode.correction address=%q err=%v", address, err)
	}
}
