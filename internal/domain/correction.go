package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// CorrectionState tracks where an address is in the correction workflow.
type CorrectionState string

const (
	StateUnresolved         CorrectionState = "unresolved"
	StateSuggestionsOffered CorrectionState = "suggestions_offered"
	StateCorrected          CorrectionState = "corrected"
	StateValidated          CorrectionState = "validated"
)

var ErrInvalidTransition = errors.New("invalid correction transition")

// AddressCorrection is the workflow record for one original address string.
type AddressCorrection struct {
	Original    string
	State       CorrectionState
	Suggestions []Candidate
	// Replacement is the address text to resolve instead of Original.
	Replacement string
	// Chosen is set when the correction picked a candidate with known coordinates.
	Chosen   *Candidate
	Resolved *Coordinates
}

// Corrections is the per-run book of address corrections, keyed by the
// original address string. It is owned by the calling layer and discarded
// after the run.
type Corrections struct {
	mu      sync.Mutex
	entries map[string]*AddressCorrection
}

func NewCorrections() *Corrections {
	return &Corrections{entries: make(map[string]*AddressCorrection)}
}

// Lookup returns a copy of the record for the address.
func (c *Corrections) Lookup(address string) (AddressCorrection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[strings.TrimSpace(address)]
	if !ok {
		return AddressCorrection{}, false
	}
	return *e, true
}

// MarkUnresolved records a failed resolution. Validated addresses cannot go back.
func (c *Corrections) MarkUnresolved(address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(address)
	if e.State == StateValidated {
		return c.transitionErr(e, StateUnresolved)
	}
	e.State = StateUnresolved
	e.Resolved = nil
	return nil
}

// OfferSuggestions attaches candidate matches to an unresolved address.
func (c *Corrections) OfferSuggestions(address string, suggestions []Candidate) error {
	if len(suggestions) == 0 {
		return fmt.Errorf("offer suggestions for %q: empty candidate list", address)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(address)
	switch e.State {
	case StateUnresolved, StateSuggestionsOffered:
	default:
		return c.transitionErr(e, StateSuggestionsOffered)
	}
	e.State = StateSuggestionsOffered
	e.Suggestions = append([]Candidate(nil), suggestions...)
	return nil
}

// Correct replaces the address text used for resolution.
// An address with no record is treated as unresolved.
func (c *Corrections) Correct(address, replacement string) error {
	replacement = strings.TrimSpace(replacement)
	if replacement == "" {
		return fmt.Errorf("correct %q: replacement must be non-empty", address)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(address)
	switch e.State {
	case StateUnresolved, StateSuggestionsOffered, StateCorrected:
	default:
		return c.transitionErr(e, StateCorrected)
	}
	e.State = StateCorrected
	e.Replacement = replacement
	e.Chosen = nil
	return nil
}

// CorrectWithCandidate picks a candidate whose coordinates are already known.
func (c *Corrections) CorrectWithCandidate(address string, cand Candidate) error {
	if err := cand.Coord.Validate(); err != nil {
		return fmt.Errorf("correct %q: %w", address, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(address)
	switch e.State {
	case StateUnresolved, StateSuggestionsOffered, StateCorrected:
	default:
		return c.transitionErr(e, StateCorrected)
	}
	e.State = StateCorrected
	e.Replacement = cand.DisplayName
	chosen := cand
	e.Chosen = &chosen
	return nil
}

// ChooseSuggestion corrects the address with the i-th offered suggestion.
func (c *Corrections) ChooseSuggestion(address string, i int) error {
	c.mu.Lock()
	e, ok := c.entries[strings.TrimSpace(address)]
	if !ok || e.State != StateSuggestionsOffered {
		c.mu.Unlock()
		return fmt.Errorf("choose suggestion for %q: %w: no suggestions offered", address, ErrInvalidTransition)
	}
	if i < 0 || i >= len(e.Suggestions) {
		c.mu.Unlock()
		return fmt.Errorf("choose suggestion for %q: index %d out of range [0,%d)", address, i, len(e.Suggestions))
	}
	cand := e.Suggestions[i]
	c.mu.Unlock()

	return c.CorrectWithCandidate(address, cand)
}

// Validate marks a corrected address as resolved to the given coordinates.
func (c *Corrections) Validate(address string, coord Coordinates) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(address)
	if e.State != StateCorrected {
		return c.transitionErr(e, StateValidated)
	}
	e.State = StateValidated
	resolved := coord
	e.Resolved = &resolved
	return nil
}

// Pending lists the addresses that still need a correction, sorted.
func (c *Corrections) Pending() []AddressCorrection {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]AddressCorrection, 0)
	for _, e := range c.entries {
		if e.State == StateUnresolved || e.State == StateSuggestionsOffered {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Original < out[j].Original })
	return out
}

func (c *Corrections) entryLocked(address string) *AddressCorrection {
	key := strings.TrimSpace(address)
	e, ok := c.entries[key]
	if !ok {
		e = &AddressCorrection{Original: key, State: StateUnresolved}
		c.entries[key] = e
	}
	return e
}

func (c *Corrections) transitionErr(e *AddressCorrection, to CorrectionState) error {
	return fmt.Errorf("%q: %s -> %s: %w", e.Original, e.State, to, ErrInvalidTransition)
}
