// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth provides the identity service client for aetheris.
//
// The identity service exposes three endpoints:
//
//	POST /auth/login     {email, password} -> {token, user} | 401
//	POST /auth/register  {username, email, password} -> user | 409
//	GET  /auth/me        (bearer token)   -> user | 401/403
//
// This package is transport glue only. Session state, persistence, and
// single-flight validation live in the session package.
package auth

import (
	"context"

	"github.com/aetheris-rag/aetheris-tui/internal/api"
)

// Service calls the identity endpoints through the shared transport.
type Service struct {
	client *api.Client
}

// NewService creates an identity service client.
func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// Login exchanges credentials for a bearer token and profile.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := s.client.Post(ctx, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates a new account. It does not authenticate the caller;
// the user logs in separately afterwards.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*UserInfo, error) {
	var user UserInfo
	if err := s.client.Post(ctx, "/auth/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser validates the bearer token and returns the profile it
// belongs to. A 401/403 here is reported as an error without any global
// side effect (see the api package interception rules).
func (s *Service) CurrentUser(ctx context.Context) (*UserInfo, error) {
	var user UserInfo
	if err := s.client.Get(ctx, "/auth/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}
