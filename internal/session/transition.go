package session

import (
	"time"

	"github.com/iliyamo/session-auth/internal/model"
)

// Decision is the outcome of presenting a refresh token to the ledger.
type Decision int

const (
	DecisionUsable Decision = iota
	DecisionNotFound
	DecisionReuse
	DecisionExpired
)

func (d Decision) String() string {
	switch d {
	case DecisionUsable:
		return "usable"
	case DecisionNotFound:
		return "not_found"
	case DecisionReuse:
		return "reuse"
	case DecisionExpired:
		return "expired"
	}
	return "unknown"
}

// MutationKind enumerates the ledger writes a transition can require.
type MutationKind int

const (
	MutationDeleteByID MutationKind = iota
	MutationInvalidateAllForUser
)

// Mutation is one ledger write. ID is set for MutationDeleteByID, UserID for
// MutationInvalidateAllForUser.
type Mutation struct {
	Kind   MutationKind
	ID     string
	UserID string
}

// Transition pairs a decision with the writes that must follow it.
type Transition struct {
	Decision  Decision
	Mutations []Mutation
}

// Decide evaluates a ledger row at now. A missing row is not found; an
// invalidated row is reuse even when it has also expired; an active row past
// its expiry is deleted.
func Decide(row *model.RefreshToken, now time.Time) Transition {
	switch {
	case row == nil:
		return Transition{Decision: DecisionNotFound}
	case row.Usable(now):
		return Transition{Decision: DecisionUsable}
	case row.Invalidated:
		return Transition{
			Decision:  DecisionReuse,
			Mutations: []Mutation{{Kind: MutationInvalidateAllForUser, UserID: row.UserID}},
		}
	}
	return Transition{
		Decision:  DecisionExpired,
		Mutations: []Mutation{{Kind: MutationDeleteByID, ID: row.ID}},
	}
}

// failure maps a non-usable decision to its error.
func (d Decision) failure() *Error {
	switch d {
	case DecisionNotFound:
		return ErrTokenNotFound
	case DecisionReuse:
		return ErrTokenReuse
	case DecisionExpired:
		return ErrTokenExpired
	}
	return nil
}
