// SPDX-License-Identifier: MIT

package identify

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/config"
)

// Rule is a compiled config.Rule.
type Rule struct {
	Name         string
	ServiceName  string
	DocumentType string
	MimeTypes    []string

	match          []*regexp.Regexp
	date           *regexp.Regexp
	dateFormats    []string
	accountHolder  *regexp.Regexp
	fixedHolders   []string
	accountNumber  *regexp.Regexp
	documentNumber *regexp.Regexp
}

// Engine evaluates rules against document text.
type Engine struct {
	rules []*Rule
}

// NewEngine compiles rules. Rules are validated by config.Validate, so an
// error here names the offending rule and expression.
func NewEngine(rules []config.Rule) (*Engine, error) {
	e := &Engine{rules: make([]*Rule, 0, len(rules))}
	for _, cr := range rules {
		r, err := compileRule(cr)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", cr.Name, err)
		}
		e.rules = append(e.rules, r)
	}
	return e, nil
}

func compileRule(cr config.Rule) (*Rule, error) {
	r := &Rule{
		Name:         cr.Name,
		ServiceName:  cr.ServiceName,
		DocumentType: cr.DocumentType,
		MimeTypes:    cr.MimeTypes,
		dateFormats:  cr.DateFormats,
		fixedHolders: cr.FixedAccountHolders,
	}
	if len(r.dateFormats) == 0 {
		r.dateFormats = config.DefaultDateFormats
	}

	for _, expr := range cr.Match {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, err
		}
		r.match = append(r.match, re)
	}

	var err error
	if r.date, err = compileGroup(cr.Date, "date"); err != nil {
		return nil, err
	}
	if r.date == nil {
		return nil, errors.New("date expression is required")
	}
	if r.accountHolder, err = compileGroup(cr.AccountHolder, "holder"); err != nil {
		return nil, err
	}
	if r.accountNumber, err = compileGroup(cr.AccountNumber, "value"); err != nil {
		return nil, err
	}
	if r.documentNumber, err = compileGroup(cr.DocumentNumber, "value"); err != nil {
		return nil, err
	}
	return r, nil
}

func compileGroup(expr, group string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	if re.SubexpIndex(group) < 0 {
		return nil, fmt.Errorf("expression %q has no named group %q", expr, group)
	}
	return re, nil
}

// Rules returns the compiled rules in configuration order.
func (e *Engine) Rules() []*Rule { return e.rules }

// Identify finds the single rule matching text and extracts its components.
func (e *Engine) Identify(text string) (NameComponents, error) {
	return e.IdentifyDocument(text, "")
}

// IdentifyDocument is Identify restricted to rules accepting mimeType. An
// empty mimeType is accepted by every rule.
func (e *Engine) IdentifyDocument(text, mimeType string) (NameComponents, error) {
	var (
		found      []NameComponents
		names      []string
		incomplete []error
	)
	for _, r := range e.rules {
		if !r.accepts(text, mimeType) {
			continue
		}
		nc, err := r.extract(text)
		if err != nil {
			incomplete = append(incomplete, err)
			continue
		}
		found = append(found, nc)
		names = append(names, r.Name)
	}

	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		if len(incomplete) > 0 {
			return NameComponents{}, errors.Join(incomplete...)
		}
		return NameComponents{}, ErrNoMatch
	default:
		return NameComponents{}, fmt.Errorf("%w: %s", ErrMultipleMatches, strings.Join(names, ", "))
	}
}

func (r *Rule) accepts(text, mimeType string) bool {
	if mimeType != "" && len(r.MimeTypes) > 0 && !slices.Contains(r.MimeTypes, mimeType) {
		return false
	}
	for _, re := range r.match {
		if !re.MatchString(text) {
			return false
		}
	}
	return true
}

func (r *Rule) extract(text string) (NameComponents, error) {
	date, err := r.extractDate(text)
	if err != nil {
		return NameComponents{}, fmt.Errorf("%w: rule %q: %v", ErrIncomplete, r.Name, err)
	}

	nc := NameComponents{
		Date:         date,
		ServiceName:  r.ServiceName,
		DocumentType: r.DocumentType,
	}
	for _, h := range r.fixedHolders {
		nc.addHolder(h)
	}
	if r.accountHolder != nil {
		idx := r.accountHolder.SubexpIndex("holder")
		for _, m := range r.accountHolder.FindAllStringSubmatch(text, -1) {
			nc.addHolder(m[idx])
		}
	}
	nc.AccountNumber = firstValue(r.accountNumber, text)
	nc.DocumentNumber = firstValue(r.documentNumber, text)
	return nc, nil
}

func (r *Rule) extractDate(text string) (time.Time, error) {
	m := r.date.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, errors.New("date not found")
	}
	raw := strings.Join(strings.Fields(m[r.date.SubexpIndex("date")]), " ")
	for _, layout := range r.dateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", raw)
}

func firstValue(re *regexp.Regexp, text string) *string {
	if re == nil {
		return nil
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(m[re.SubexpIndex("value")])
	if v == "" {
		return nil
	}
	return &v
}
