// Package parsers holds the vendor-specific line-item parsers and the
// dispatcher that selects one from signature tokens found in document text.
package parsers

import (
	"fmt"
	"strings"

	"github.com/vinodex/invoice-reconciler/internal/entity"
	"github.com/vinodex/invoice-reconciler/internal/normalize"
)

// Parser segments one known document layout into candidate line items.
// Implementations must emit partially-populated items rather than drop a row
// they cannot fully read; a silent drop leaves money or stock unaccounted
// for, which is worse than a low-confidence item the validator will flag.
// Zero items from a parseable document is a valid outcome, flagged later by
// the reconciler.
//
// The returned metadata carries only values the layout itself exposes; the
// anchored document-level field pass belongs to the caller, which merges the
// two with the anchored values winning.
type Parser interface {
	Vendor() string
	Parse(lines []string) (entity.DocumentMetadata, []entity.DetectedLineItem, error)
}

// UnknownVendorError is raised when no registered signature matches.
// Known lists the registered vendor names so the caller can present an
// actionable message.
type UnknownVendorError struct {
	Known []string
}

func (e *UnknownVendorError) Error() string {
	return fmt.Sprintf("no vendor signature matched; known vendors: %s", strings.Join(e.Known, ", "))
}

// AnchorMissingError is raised only when an anchor required to segment any
// line items is absent. Fatal for line-item extraction on that document.
type AnchorMissingError struct {
	Vendor string
	Anchor string
}

func (e *AnchorMissingError) Error() string {
	return fmt.Sprintf("%s: required anchor %q not found", e.Vendor, e.Anchor)
}

type registration struct {
	vendor string
	tokens []string
	parser Parser
}

// Registry maps signature tokens to parsers. Registration order matters:
// Select checks vendors in the order they were registered and the first
// matching token wins. Adding a vendor is purely additive.
type Registry struct {
	regs []registration
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a vendor with its signature tokens (tax id or vendor-name
// substrings, matched against normalized document text).
func (r *Registry) Register(vendor string, tokens []string, p Parser) {
	norm := make([]string, len(tokens))
	for i, tok := range tokens {
		norm[i] = normalize.Normalize(tok)
	}
	r.regs = append(r.regs, registration{vendor: vendor, tokens: norm, parser: p})
}

// Known returns the registered vendor names in registration order.
func (r *Registry) Known() []string {
	names := make([]string, len(r.regs))
	for i, reg := range r.regs {
		names[i] = reg.vendor
	}
	return names
}

// Select picks the parser whose signature tokens appear in the document text.
// Vendor identity is always re-derived from content, never trusted from
// input, because mislabeled documents are common.
func (r *Registry) Select(lines []string) (Parser, error) {
	full := normalize.Normalize(strings.Join(lines, " "))
	for _, reg := range r.regs {
		for _, tok := range reg.tokens {
			if tok != "" && strings.Contains(full, tok) {
				return reg.parser, nil
			}
		}
	}
	return nil, &UnknownVendorError{Known: r.Known()}
}
