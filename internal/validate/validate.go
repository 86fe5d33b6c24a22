// SPDX-License-Identifier: MIT

// Package validate collects field-level validation failures so that a
// configuration file reports every problem at once.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Error is one failed check.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return "validation failed for " + e.Field + ": " + e.Message
}

// ValidationError is returned by Validator.Err and lists every failed check.
type ValidationError struct {
	errors []Error
}

// Errors returns the failed checks in the order they were found.
func (e ValidationError) Errors() []Error {
	return e.errors
}

func (e ValidationError) Error() string {
	var b strings.Builder
	for i, err := range e.errors {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// Validator accumulates failures. The zero value is ready to use.
type Validator struct {
	errors []Error
}

// New returns an empty validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a failure for field.
func (v *Validator) AddError(field, message string, value any) {
	v.errors = append(v.errors, Error{Field: field, Value: value, Message: message})
}

func (v *Validator) failf(field string, value any, format string, args ...any) {
	v.AddError(field, fmt.Sprintf(format, args...), value)
}

// IsValid reports whether no failure has been recorded.
func (v *Validator) IsValid() bool { return len(v.errors) == 0 }

// Errors returns the recorded failures.
func (v *Validator) Errors() []Error { return v.errors }

// Err returns a ValidationError holding a copy of the failures, or nil.
func (v *Validator) Err() error {
	if v.IsValid() {
		return nil
	}
	return ValidationError{errors: slices.Clone(v.errors)}
}

// URL requires an absolute URL with a host and, when schemes is not empty,
// one of the listed schemes.
func (v *Validator) URL(field, value string, schemes []string) {
	if value == "" {
		v.AddError(field, "URL cannot be empty", value)
		return
	}
	u, err := url.Parse(value)
	switch {
	case err != nil:
		v.failf(field, value, "invalid URL: %v", err)
	case u.Host == "":
		v.AddError(field, "URL must have a host", value)
	case len(schemes) > 0 && !slices.Contains(schemes, u.Scheme):
		v.failf(field, value, "unsupported URL scheme %q (allowed: %s)", u.Scheme, strings.Join(schemes, ", "))
	}
}

// Range requires lo <= value <= hi.
func (v *Validator) Range(field string, value, lo, hi int) {
	if value < lo || value > hi {
		v.failf(field, value, "value must be between %d and %d, got %d", lo, hi, value)
	}
}

// NotEmpty rejects empty and whitespace-only strings.
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

// OneOf requires value to be one of allowed.
func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.failf(field, value, "value must be one of %s, got %q", strings.Join(allowed, ", "), value)
	}
}

// NonNegative rejects negative integers.
func (v *Validator) NonNegative(field string, value int) {
	if value < 0 {
		v.failf(field, value, "value cannot be negative, got %d", value)
	}
}

// NonNegativeDuration rejects negative durations.
func (v *Validator) NonNegativeDuration(field string, value time.Duration) {
	if value < 0 {
		v.failf(field, value, "duration cannot be negative, got %s", value)
	}
}

// Regexp requires value to compile and to define each of the named groups.
func (v *Validator) Regexp(field, value string, groups ...string) {
	re, err := regexp.Compile(value)
	if err != nil {
		v.failf(field, value, "invalid regular expression: %v", err)
		return
	}
	for _, g := range groups {
		if re.SubexpIndex(g) < 0 {
			v.failf(field, value, "regular expression must define named group %q", g)
		}
	}
}
