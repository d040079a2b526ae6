// Package dedup decides whether an incoming row collides with a stored lead.
//
// A row's identity is its normalized email when present, otherwise its
// normalized phone. Lookups check email first, then phone; the first match
// wins and the row is reported as a duplicate.
package dedup

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Index is the subset of the store the engine needs.
type Index interface {
	ExistsByEmail(ctx context.Context, emailNorm string) (bool, error)
	ExistsByPhone(ctx context.Context, phoneNorm string) (bool, error)
}

// NormalizeEmail lowercases and trims an email for matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips a phone down to its digits.
// "+1 (555) 010-2030" → "15550102030".
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LeadID derives the unique lead identifier: the normalized email when
// present, else "PHONE_" plus the digit-only phone, else "".
func LeadID(email, phone string) string {
	if e := NormalizeEmail(email); e != "" {
		return e
	}
	if p := NormalizePhone(phone); p != "" {
		return "PHONE_" + p
	}
	return ""
}

// Engine checks incoming rows against an Index.
type Engine struct {
	idx Index
}

// NewEngine creates an Engine backed by idx.
func NewEngine(idx Index) *Engine {
	return &Engine{idx: idx}
}

// Check reports whether a row with the given raw email/phone duplicates an
// existing lead. Email is consulted first; phone only when the email found
// nothing. A row with neither identifier is never a duplicate (callers skip
// it via LeadID == "").
func (e *Engine) Check(ctx context.Context, email, phone string) (bool, error) {
	if en := NormalizeEmail(email); en != "" {
		exists, err := e.idx.ExistsByEmail(ctx, en)
		if err != nil {
			return false, fmt.Errorf("dedup: email lookup: %w", err)
		}
		if exists {
			return true, nil
		}
	}
	if pn := NormalizePhone(phone); pn != "" {
		exists, err := e.idx.ExistsByPhone(ctx, pn)
		if err != nil {
			return false, fmt.Errorf("dedup: phone lookup: %w", err)
		}
		if exists {
			return true, nil
		}
	}
	return false, nil
}
