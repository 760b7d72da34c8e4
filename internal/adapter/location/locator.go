package location

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/couchcryptid/where/internal/domain"
)

// Permission is the user's authorization state for location services.
type Permission int

const (
	PermissionPrompt Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "prompt"
	}
}

// ParsePermission accepts "granted", "denied" and "prompt".
func ParsePermission(s string) (Permission, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "granted", "authorized":
		return PermissionGranted, nil
	case "denied":
		return PermissionDenied, nil
	case "prompt", "", "not_determined":
		return PermissionPrompt, nil
	default:
		return PermissionPrompt, fmt.Errorf("unknown location permission %q", s)
	}
}

// Locator is a source of coarse coordinates gated on user permission.
type Locator interface {
	Permission() Permission
	// RequestPermission prompts for authorization when it is not yet
	// determined and returns the resulting state.
	RequestPermission(ctx context.Context) (Permission, error)
	Locate(ctx context.Context) (domain.Coordinate, error)
}

// StaticLocator reports a fixed coordinate. A prompt is answered with
// PermissionGranted, as a user accepting the request would.
type StaticLocator struct {
	mu    sync.Mutex
	coord *domain.Coordinate
	perm  Permission
}

// NewStaticLocator creates a locator; coord may be nil for "no fix".
func NewStaticLocator(coord *domain.Coordinate, perm Permission) *StaticLocator {
	return &StaticLocator{coord: coord, perm: perm}
}

// Permission implements Locator.
func (l *StaticLocator) Permission() Permission {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perm
}

// SetPermission changes the authorization state, e.g. a revocation.
func (l *StaticLocator) SetPermission(p Permission) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.perm = p
}

// RequestPermission implements Locator.
func (l *StaticLocator) RequestPermission(context.Context) (Permission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.perm == PermissionPrompt {
		l.perm = PermissionGranted
	}
	return l.perm, nil
}

// Locate implements Locator.
func (l *StaticLocator) Locate(context.Context) (domain.Coordinate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.coord == nil {
		return domain.Coordinate{}, fmt.Errorf("no location fix: %w", domain.ErrNoData)
	}
	return *l.coord, nil
}
