// Package queue defines message payloads exchanged over the message broker.
package queue

// SecurityQueueName is the durable queue carrying SecurityEvent messages.
const SecurityQueueName = "auth.security"

// EventTokenReuse is published when an invalidated refresh token is presented.
const EventTokenReuse = "token_reuse"

// SecurityEvent is published when the session layer observes something an
// operator should look at, such as a replayed refresh token. It never
// carries token strings or password material.
type SecurityEvent struct {
	Type       string `json:"type"`
	UserID     string `json:"user_id"`
	TokenID    string `json:"token_id,omitempty"`
	Revoked    int64  `json:"revoked"`
	OccurredAt string `json:"occurred_at"`
}
