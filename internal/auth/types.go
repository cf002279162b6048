// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth provides the identity service client for aetheris.
package auth

import "time"

// UserInfo is the user record returned by the identity service. It is
// immutable once received; fresher data replaces it wholesale.
type UserInfo struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

// LoginRequest carries the credentials for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest carries the details for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the successful login payload: a bearer token plus the
// authenticated user's profile.
type LoginResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}
