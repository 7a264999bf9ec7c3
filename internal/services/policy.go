package services

import (
	"commute-route-service/internal/domain"
	"fmt"
	"math"
	"strings"
)

type PolicyMode string

const (
	// FailFast aborts a matrix build at the first unreachable pair.
	FailFast PolicyMode = "fail_fast"
	// Substitute fills unreachable pairs with a sentinel and keeps going.
	Substitute PolicyMode = "substitute"
)

// FailurePolicy decides how a matrix build treats unreachable pairs.
// It is chosen once per build and applied to every pair.
type FailurePolicy struct {
	Mode     PolicyMode
	Sentinel float64
}

// FailFastPolicy carries domain.DefaultSentinel so that switching the mode
// to substitute later keeps a usable sentinel.
func FailFastPolicy() FailurePolicy {
	return FailurePolicy{Mode: FailFast, Sentinel: domain.DefaultSentinel}
}

// SubstitutePolicy uses sentinel as given; zero is a valid sentinel.
func SubstitutePolicy(sentinel float64) FailurePolicy {
	return FailurePolicy{Mode: Substitute, Sentinel: sentinel}
}

// ParseFailurePolicy maps a configuration string onto a policy.
// An empty mode selects fail-fast.
func ParseFailurePolicy(mode string, sentinel float64) (FailurePolicy, error) {
	if math.IsNaN(sentinel) || sentinel < 0 {
		return FailurePolicy{}, fmt.Errorf("parse failure policy: sentinel must be a non-negative number, got %v", sentinel)
	}

	switch PolicyMode(strings.ToLower(strings.TrimSpace(mode))) {
	case "", FailFast:
		return FailurePolicy{Mode: FailFast, Sentinel: sentinel}, nil
	case Substitute:
		return SubstitutePolicy(sentinel), nil
	default:
		return FailurePolicy{}, fmt.Errorf("parse failure policy: unknown mode %q", mode)
	}
}

func (p FailurePolicy) String() string {
	if p.Mode == Substitute {
		return fmt.Sprintf("%s(%g)", p.Mode, p.Sentinel)
	}
	return string(FailFast)
}
