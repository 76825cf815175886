package models

import (
	"time"

	"github.com/google/uuid"
)

// Source records where a generated artifact came from
type Source string

const (
	SourceRemote Source = "remote" // generation backend, sanitized
	SourceLocal  Source = "local"  // deterministic template generator
)

// Known section names offered by the business form. Requests are not
// restricted to this vocabulary; unknown names are carried through and ignored
// by the local generator.
const (
	SectionAbout        = "About"
	SectionServices     = "Services"
	SectionProducts     = "Products"
	SectionTestimonials = "Testimonials"
	SectionGallery      = "Gallery"
	SectionContact      = "Contact"
)

// KnownSections lists the section vocabulary in render order
var KnownSections = []string{
	SectionAbout,
	SectionServices,
	SectionProducts,
	SectionTestimonials,
	SectionGallery,
	SectionContact,
}

// DefaultSections is substituted by the prompt composer when a request names none
var DefaultSections = []string{SectionAbout, SectionServices, SectionContact}

// GenerationRequest represents the business description submitted for generation
type GenerationRequest struct {
	Name     string   `json:"name" validate:"max=100"`
	Industry string   `json:"industry" validate:"max=100"`
	Audience string   `json:"audience" validate:"max=200"`
	Color    string   `json:"color,omitempty" validate:"omitempty,max=50"`
	Sections []string `json:"sections" validate:"max=10"`
}

// HasSection reports whether name was requested, by exact match
func (r GenerationRequest) HasSection(name string) bool {
	for _, s := range r.Sections {
		if s == name {
			return true
		}
	}
	return false
}

// GenerationResult is the artifact handed back to the caller
type GenerationResult struct {
	Code     string `json:"code"`
	Degraded bool   `json:"degraded"`
	Notice   string `json:"notice,omitempty"`
	Source   Source `json:"source"`
	// Reason is the fallback classification when Degraded is set
	Reason string `json:"reason,omitempty"`
}

// GenerationEvent is published after every completed generation. It never
// carries the generated code.
type GenerationEvent struct {
	ID           uuid.UUID `json:"id"`
	RequestID    string    `json:"request_id,omitempty"`
	Source       Source    `json:"source"`
	Degraded     bool      `json:"degraded"`
	Reason       string    `json:"reason,omitempty"`
	SectionCount int       `json:"section_count"`
	CodeLength   int       `json:"code_length"`
	DurationMs   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}
