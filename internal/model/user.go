package model

import "time"

// User represents an account record as stored in the `users` table.
// It is owned by the credential store; the session layer only reads it.
//
// Fields:
//  ID           – UUID primary key.
//  Email        – unique, lower-cased email address.
//  UserName     – display name.
//  PasswordHash – bcrypt hash of the password. Never leaves the server.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           string    // users.id
	Email        string    // users.email
	UserName     string    // users.user_name
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Profile is the sanitized view of a User that may be embedded in token
// claims and response bodies.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	UserName  string    `json:"userName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Profile strips the password hash.
func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		UserName:  u.UserName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
