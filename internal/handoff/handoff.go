// Package handoff holds the value passed between checkout stages of one
// browser session. A session holds exactly one Handoff, overwritten wholesale
// on each stage transition.
package handoff

import (
	"context"
	"errors"
	"fmt"

	"github.com/mosaicgrove/storefront/internal/domain"
)

var ErrUnknownKind = errors.New("unknown handoff kind")

type Kind int

const (
	Empty Kind = iota
	HasSnapshot
	HasConfirmation
)

func (k Kind) String() string {
	switch k {
	case HasSnapshot:
		return "snapshot"
	case HasConfirmation:
		return "confirmation"
	default:
		return "empty"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "empty", "":
		*k = Empty
	case "snapshot":
		*k = HasSnapshot
	case "confirmation":
		*k = HasConfirmation
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, b)
	}
	return nil
}

// Handoff is a tagged union. Only the field matching Kind is set.
type Handoff struct {
	Kind         Kind                      `json:"kind"`
	Snapshot     *domain.CheckoutSnapshot  `json:"snapshot,omitempty"`
	Confirmation *domain.OrderConfirmation `json:"confirmation,omitempty"`
}

func WithSnapshot(s domain.CheckoutSnapshot) Handoff {
	c := s.Clone()
	return Handoff{Kind: HasSnapshot, Snapshot: &c}
}

func WithConfirmation(o domain.OrderConfirmation) Handoff {
	c := o.Clone()
	return Handoff{Kind: HasConfirmation, Confirmation: &c}
}

// CheckoutSnapshot returns the snapshot when the handoff carries one.
func (h Handoff) CheckoutSnapshot() (domain.CheckoutSnapshot, bool) {
	if h.Kind != HasSnapshot || h.Snapshot == nil {
		return domain.CheckoutSnapshot{}, false
	}
	return h.Snapshot.Clone(), true
}

// OrderConfirmation returns the confirmation when the handoff carries one.
func (h Handoff) OrderConfirmation() (domain.OrderConfirmation, bool) {
	if h.Kind != HasConfirmation || h.Confirmation == nil {
		return domain.OrderConfirmation{}, false
	}
	return h.Confirmation.Clone(), true
}

// normalize collapses a handoff whose payload does not match its tag.
func (h Handoff) normalize() Handoff {
	switch {
	case h.Kind == HasSnapshot && h.Snapshot != nil:
		return Handoff{Kind: HasSnapshot, Snapshot: h.Snapshot}
	case h.Kind == HasConfirmation && h.Confirmation != nil:
		return Handoff{Kind: HasConfirmation, Confirmation: h.Confirmation}
	default:
		return Handoff{}
	}
}

func (h Handoff) clone() Handoff {
	h = h.normalize()
	switch h.Kind {
	case HasSnapshot:
		return WithSnapshot(*h.Snapshot)
	case HasConfirmation:
		return WithConfirmation(*h.Confirmation)
	}
	return h
}

// Store keeps one Handoff per session scope. Load of a scope with nothing
// stored yields an Empty handoff and no error.
type Store interface {
	Load(ctx context.Context, scope string) (Handoff, error)
	Save(ctx context.Context, scope string, h Handoff) error
	Clear(ctx context.Context, scope string) error
}
