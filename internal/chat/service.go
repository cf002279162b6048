// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the question-answering client and its
// reload-surviving interaction state.
package chat

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/aetheris-rag/aetheris-tui/internal/api"
)

// Service calls the question-answering endpoint through the shared
// transport.
type Service struct {
	client *api.Client
}

// NewService creates a question-answering client.
func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// Ask submits a question. The question text is NFC-normalized and
// trimmed before it goes out so the service sees canonical text
// regardless of the input method that produced it.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*AnswerResponse, error) {
	req.Question = NormalizeQuestion(req.Question)

	var resp AnswerResponse
	if err := s.client.Post(ctx, "/chat/ask", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NormalizeQuestion canonicalizes question text: Unicode NFC plus
// surrounding-whitespace trim.
func NormalizeQuestion(q string) string {
	return norm.NFC.String(strings.TrimSpace(q))
}
