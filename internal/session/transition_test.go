package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/session-auth/internal/model"
)

func TestDecide(t *testing.T) {
	now := time.Date(2025, 10, 13, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		row       *model.RefreshToken
		decision  Decision
		mutations []Mutation
	}{
		{
			name:     "missing row",
			row:      nil,
			decision: DecisionNotFound,
		},
		{
			name:      "invalidated row is reuse",
			row:       &model.RefreshToken{ID: "t1", UserID: "u1", Invalidated: true, ExpiresAt: now.Add(time.Minute)},
			decision:  DecisionReuse,
			mutations: []Mutation{{Kind: MutationInvalidateAllForUser, UserID: "u1"}},
		},
		{
			name:      "reuse wins over expiry",
			row:       &model.RefreshToken{ID: "t1", UserID: "u1", Invalidated: true, ExpiresAt: now.Add(-time.Minute)},
			decision:  DecisionReuse,
			mutations: []Mutation{{Kind: MutationInvalidateAllForUser, UserID: "u1"}},
		},
		{
			name:      "expiry equal to now is expired",
			row:       &model.RefreshToken{ID: "t1", UserID: "u1", ExpiresAt: now},
			decision:  DecisionExpired,
			mutations: []Mutation{{Kind: MutationDeleteByID, ID: "t1"}},
		},
		{
			name:      "past expiry",
			row:       &model.RefreshToken{ID: "t1", UserID: "u1", ExpiresAt: now.Add(-time.Hour)},
			decision:  DecisionExpired,
			mutations: []Mutation{{Kind: MutationDeleteByID, ID: "t1"}},
		},
		{
			name:     "one microsecond left is usable",
			row:      &model.RefreshToken{ID: "t1", UserID: "u1", ExpiresAt: now.Add(time.Microsecond)},
			decision: DecisionUsable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Decide(tt.row, now)
			assert.Equal(t, tt.decision, tr.Decision)
			assert.Equal(t, tt.mutations, tr.Mutations)
		})
	}
}

func TestDecisionFailure(t *testing.T) {
	assert.Nil(t, DecisionUsable.failure())
	assert.Equal(t, ErrTokenNotFound, DecisionNotFound.failure())
	assert.Equal(t, ErrTokenReuse, DecisionReuse.failure())
	assert.Equal(t, ErrTokenExpired, DecisionExpired.failure())
	assert.Equal(t, "reuse", DecisionReuse.String())
}
