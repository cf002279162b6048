// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the question-answering client and its
// reload-surviving interaction state.
package chat

import (
	"encoding/json"
	"fmt"
)

// AskRequest is the question-answering request payload.
type AskRequest struct {
	// Question is the question text.
	Question string `json:"question"`

	// TopK is the number of retrieved chunks to consider (service
	// default when zero).
	TopK int `json:"topK,omitempty"`

	// UseRAG toggles the retrieval pipeline (service default when nil).
	UseRAG *bool `json:"useRag,omitempty"`
}

// AnswerResponse is the question-answering response payload.
type AnswerResponse struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`

	// Citations is the evidence the answer rests on, in rank order.
	Citations []Citation `json:"citations"`

	// EvidenceInsufficient flags an answer produced from thin evidence.
	EvidenceInsufficient bool `json:"evidenceInsufficient"`

	// FallbackResources lists candidate resources when the generation
	// step was degraded to plain retrieval.
	FallbackResources []ResourceBrief `json:"fallbackResources,omitempty"`

	// LatencyMs is the service-side total response time.
	LatencyMs int64 `json:"latencyMs"`
}

// ResourceBrief is the slim resource record used in fallback listings.
type ResourceBrief struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Tags        string `json:"tags"`
	FileType    string `json:"fileType"`
	Description string `json:"description,omitempty"`
	UploadTime  string `json:"uploadTime"`
}

// =============================================================================
// CITATIONS
// =============================================================================

// Citation points at one evidence chunk backing the answer.
type Citation struct {
	ResourceID    string           `json:"resourceId"`
	ResourceTitle string           `json:"resourceTitle"`
	ChunkID       string           `json:"chunkId"`
	ChunkIndex    int              `json:"chunkIndex"`
	Location      CitationLocation `json:"location"`
	Snippet       string           `json:"snippet"`
	Score         float64          `json:"score"`
}

// CitationLocation locates a citation inside its source document. It is
// a closed tagged union: PDFLocation or MarkdownLocation, discriminated
// by a "type" field on the wire.
type CitationLocation interface {
	fmt.Stringer
	locationType() string
}

// PDFLocation is a page range inside a PDF resource.
type PDFLocation struct {
	PageStart int `json:"pageStart"`
	PageEnd   int `json:"pageEnd"`
}

func (PDFLocation) locationType() string { return "pdf" }

// MarkdownLocation is a chapter path inside a markdown resource,
// e.g. "Chapter 1 > 1.1".
type MarkdownLocation struct {
	ChapterPath string `json:"chapterPath"`
}

func (MarkdownLocation) locationType() string { return "markdown" }

// String renders the location for display.
func (l PDFLocation) String() string {
	if l.PageStart == l.PageEnd {
		return fmt.Sprintf("p. %d", l.PageStart)
	}
	return fmt.Sprintf("pp. %d-%d", l.PageStart, l.PageEnd)
}

// String renders the location for display.
func (l MarkdownLocation) String() string {
	return l.ChapterPath
}

// MarshalJSON writes the location with its discriminator.
func (c Citation) MarshalJSON() ([]byte, error) {
	loc, err := marshalLocation(c.Location)
	if err != nil {
		return nil, err
	}
	type alias Citation
	return json.Marshal(struct {
		alias
		Location json.RawMessage `json:"location"`
	}{alias(c), loc})
}

// UnmarshalJSON reads the location by its discriminator.
func (c *Citation) UnmarshalJSON(data []byte) error {
	type alias Citation
	var raw struct {
		alias
		Location json.RawMessage `json:"location"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	loc, err := unmarshalLocation(raw.Location)
	if err != nil {
		return err
	}
	*c = Citation(raw.alias)
	c.Location = loc
	return nil
}

func marshalLocation(loc CitationLocation) (json.RawMessage, error) {
	if loc == nil {
		return json.RawMessage("null"), nil
	}
	switch l := loc.(type) {
	case PDFLocation:
		return json.Marshal(struct {
			Type string `json:"type"`
			PDFLocation
		}{"pdf", l})
	case MarkdownLocation:
		return json.Marshal(struct {
			Type string `json:"type"`
			MarkdownLocation
		}{"markdown", l})
	default:
		return nil, fmt.Errorf("unknown citation location type %T", loc)
	}
}

func unmarshalLocation(data json.RawMessage) (CitationLocation, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case "pdf":
		var l PDFLocation
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, err
		}
		return l, nil
	case "markdown":
		var l MarkdownLocation
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown citation location type %q", tag.Type)
	}
}

// =============================================================================
// PERSISTED SNAPSHOT
// =============================================================================

// QueryState is the latest query/answer cycle, persisted through the
// statestore so it survives a client restart.
type QueryState struct {
	Answer               string          `json:"answer"`
	Citations            []Citation      `json:"citations,omitempty"`
	EvidenceInsufficient bool            `json:"evidenceInsufficient"`
	FallbackResources    []ResourceBrief `json:"fallbackResources,omitempty"`
	LatencyMs            int64           `json:"latencyMs"`

	// LastRequest is the exact payload of the last successful query,
	// kept verbatim for retry.
	LastRequest *AskRequest `json:"lastRequest,omitempty"`
}
