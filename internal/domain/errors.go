package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAddressNotFound  = errors.New("address not found")
	ErrNoRoute          = errors.New("no route found")
	ErrEmptyWaypointSet = errors.New("day has no distinct waypoint addresses")
)

// Alternative match offered for an address that could not be resolved.
type Candidate struct {
	DisplayName string
	Coord       Coordinates
}

// AddressResolutionFailure reports a single address the geocoder could not resolve.
type AddressResolutionFailure struct {
	Address     string
	Suggestions []Candidate
	Err         error
}

func (e *AddressResolutionFailure) Error() string {
	msg := fmt.Sprintf("resolve address %q", e.Address)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (%d suggestions)", len(e.Suggestions))
	}
	return msg
}

func (e *AddressResolutionFailure) Unwrap() error { return e.Err }

// RouteQueryFailure reports a coordinate pair the route oracle could not serve.
type RouteQueryFailure struct {
	Pair Pair
	Err  error
}

func (e *RouteQueryFailure) Error() string {
	return fmt.Sprintf("route query %d -> %d: %v", e.Pair.From, e.Pair.To, e.Err)
}

func (e *RouteQueryFailure) Unwrap() error { return e.Err }

// MatrixBuildFailure aborts a fail-fast matrix build at the first unreachable pair.
type MatrixBuildFailure struct {
	Pair Pair
	Err  error
}

func (e *MatrixBuildFailure) Error() string {
	return fmt.Sprintf("build matrix: pair %d -> %d: %v", e.Pair.From, e.Pair.To, e.Err)
}

func (e *MatrixBuildFailure) Unwrap() error { return e.Err }

type FailureStage string

const (
	StageInput     FailureStage = "input"
	StageGeocode   FailureStage = "geocode"
	StageMatrix    FailureStage = "matrix"
	StageCancelled FailureStage = "cancelled"
)

type UnresolvedAddress struct {
	Address     string
	Role        StopRole
	Suggestions []Candidate
}

// DayFailure records why a single day could not be completed.
type DayFailure struct {
	DayKey     string
	Stage      FailureStage
	Reason     string
	Unresolved []UnresolvedAddress
	Err        error
}

func (f DayFailure) Error() string {
	if len(f.Unresolved) == 0 {
		return fmt.Sprintf("day %q: %s: %s", f.DayKey, f.Stage, f.Reason)
	}
	addrs := make([]string, 0, len(f.Unresolved))
	for _, u := range f.Unresolved {
		addrs = append(addrs, u.Address)
	}
	return fmt.Sprintf("day %q: %s: %s [%s]", f.DayKey, f.Stage, f.Reason, strings.Join(addrs, "; "))
}

func (f DayFailure) Unwrap() error { return f.Err }
