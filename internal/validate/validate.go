// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

// Package validate is a declarative field-rule checker for form input.
// Rules are structured constraints rather than parsed rule strings; each
// field carries an ordered constraint list and the first failing
// constraint produces that field's message.
package validate

import (
	"fmt"
	"net/mail"
	"strings"
)

// Constraint is a single named check applied to one field.
type Constraint struct {
	kind       kind
	n          int
	otherField string
}

type kind int

const (
	kindRequired kind = iota
	kindMinLength
	kindMaxLength
	kindEmail
	kindEqualsField
)

// Required fails on a missing or empty value.
func Required() Constraint { return Constraint{kind: kindRequired} }

// MinLength fails on values shorter than n bytes.
func MinLength(n int) Constraint { return Constraint{kind: kindMinLength, n: n} }

// MaxLength fails on values longer than n bytes.
func MaxLength(n int) Constraint { return Constraint{kind: kindMaxLength, n: n} }

// Email fails on values that do not parse as a bare address.
func Email() Constraint { return Constraint{kind: kindEmail} }

// EqualsField fails unless the value matches another field's value.
func EqualsField(name string) Constraint { return Constraint{kind: kindEqualsField, otherField: name} }

// Rules maps field names to their ordered constraints.
type Rules map[string][]Constraint

// Errors maps field names to user-facing messages, for precise form
// re-rendering.
type Errors map[string]string

// Any reports whether any field failed.
func (e Errors) Any() bool { return len(e) > 0 }

// Validate checks form against rules and returns the per-field errors.
// A missing or empty value triggers only Required; the remaining
// constraints on that field are skipped.
func Validate(form map[string]string, rules Rules) Errors {
	errs := make(Errors)

	for field, constraints := range rules {
		value, ok := form[field]
		if !ok || value == "" {
			for _, c := range constraints {
				if c.kind == kindRequired {
					errs[field] = fmt.Sprintf("%s is required", label(field))
					break
				}
			}
			continue
		}

		for _, c := range constraints {
			if msg := c.check(field, value, form); msg != "" {
				errs[field] = msg
				break
			}
		}
	}

	return errs
}

func (c Constraint) check(field, value string, form map[string]string) string {
	switch c.kind {
	case kindRequired:
		// Presence was already established.
		return ""
	case kindMinLength:
		if len(value) < c.n {
			return fmt.Sprintf("%s must be at least %d characters", label(field), c.n)
		}
	case kindMaxLength:
		if len(value) > c.n {
			return fmt.Sprintf("%s must not exceed %d characters", label(field), c.n)
		}
	case kindEmail:
		if addr, err := mail.ParseAddress(value); err != nil || addr.Address != value {
			return "Invalid email format"
		}
	case kindEqualsField:
		if other, ok := form[c.otherField]; !ok || value != other {
			return fmt.Sprintf("%s does not match %s", label(field), label(c.otherField))
		}
	}
	return ""
}

// label turns a form field name into a display name: first letter
// capitalized, underscores spaced.
func label(field string) string {
	if field == "" {
		return field
	}
	s := strings.ReplaceAll(field, "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}
