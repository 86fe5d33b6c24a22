// SPDX-License-Identifier: MIT

package automation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/metrics"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/paperless"
)

// Names of the custom fields holding account details.
const (
	FieldAccountHolder  = "Account Holder"
	FieldAccountNumber  = "Account Number"
	FieldDocumentNumber = "Document Number"
)

// AccountFields are the three account custom fields.
type AccountFields struct {
	AccountHolder  paperless.CustomField
	AccountNumber  paperless.CustomField
	DocumentNumber paperless.CustomField
}

// ToSlug lower-cases name and replaces every rune that is not a letter, a
// digit or an underscore with "-".
func ToSlug(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return '-'
	}, strings.ToLower(name))
}

// DocumentRefParser turns command line arguments into document ids.
type DocumentRefParser struct {
	urlPattern *regexp.Regexp
}

// NewDocumentRefParser accepts decimal ids and document URLs under baseURL.
func NewDocumentRefParser(baseURL string) *DocumentRefParser {
	base := regexp.QuoteMeta(strings.TrimRight(baseURL, "/"))
	return &DocumentRefParser{
		urlPattern: regexp.MustCompile(`^` + base + `/?documents/(?P<id>\d+)(/.*)?$`),
	}
}

// Parse returns the document id of ref, or a *UsageError.
func (p *DocumentRefParser) Parse(ref string) (int, error) {
	if id, err := strconv.Atoi(ref); err == nil && id > 0 {
		return id, nil
	}
	m := p.urlPattern.FindStringSubmatch(ref)
	if m == nil {
		return 0, usageErrorf("argument '%s' is not recognized", ref)
	}
	id, err := strconv.Atoi(m[p.urlPattern.SubexpIndex("id")])
	if err != nil {
		return 0, usageErrorf("argument '%s' is not recognized", ref)
	}
	return id, nil
}

// ParseAll parses every ref, failing on the first unrecognised one.
func (p *DocumentRefParser) ParseAll(refs []string) ([]int, error) {
	ids := make([]int, 0, len(refs))
	for _, ref := range refs {
		id, err := p.Parse(ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// EnsureCorrespondent looks up name, creating it when missing.
func EnsureCorrespondent(ctx context.Context, s *paperless.Session, name string) (paperless.Correspondent, error) {
	c, err := s.LookupCorrespondent(ctx, name)
	if !errors.Is(err, paperless.ErrNotFound) {
		return c, err
	}
	if _, err := s.NewCorrespondent(ctx, name, ToSlug(name)); err != nil {
		return paperless.Correspondent{}, err
	}
	metrics.RecordObjectCreated(string(paperless.ObjectCorrespondent))
	return s.LookupCorrespondent(ctx, name)
}

// EnsureDocumentType looks up name, creating it when missing.
func EnsureDocumentType(ctx context.Context, s *paperless.Session, name string) (paperless.DocumentType, error) {
	dt, err := s.LookupDocumentType(ctx, name)
	if !errors.Is(err, paperless.ErrNotFound) {
		return dt, err
	}
	if _, err := s.NewDocumentType(ctx, name, ToSlug(name)); err != nil {
		return paperless.DocumentType{}, err
	}
	metrics.RecordObjectCreated(string(paperless.ObjectDocumentType))
	return s.LookupDocumentType(ctx, name)
}

// findAccountFields returns each account field by exact name, nil when
// missing. More than one field with the same name is an error.
func findAccountFields(ctx context.Context, s *paperless.Session) (map[string]*paperless.CustomField, error) {
	fields, err := s.CustomFields(ctx)
	if err != nil {
		return nil, err
	}
	found := map[string]*paperless.CustomField{
		FieldAccountHolder:  nil,
		FieldAccountNumber:  nil,
		FieldDocumentNumber: nil,
	}
	for i := range fields {
		f := &fields[i]
		existing, wanted := found[f.Name]
		if !wanted {
			continue
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: more than one custom field named '%s'", paperless.ErrAmbiguous, f.Name)
		}
		found[f.Name] = f
	}
	return found, nil
}

// LookupAccountCustomFields returns the account custom fields, or
// paperless.ErrNotFound when any is missing.
func LookupAccountCustomFields(ctx context.Context, s *paperless.Session) (AccountFields, error) {
	found, err := findAccountFields(ctx, s)
	if err != nil {
		return AccountFields{}, err
	}
	for _, f := range found {
		if f == nil {
			return AccountFields{}, fmt.Errorf("%w: unable to find custom fields '%s', '%s', or '%s'",
				paperless.ErrNotFound, FieldAccountHolder, FieldAccountNumber, FieldDocumentNumber)
		}
	}
	return AccountFields{
		AccountHolder:  *found[FieldAccountHolder],
		AccountNumber:  *found[FieldAccountNumber],
		DocumentNumber: *found[FieldDocumentNumber],
	}, nil
}

// EnsureAccountCustomFields creates missing account custom fields as
// strings and returns all three.
func EnsureAccountCustomFields(ctx context.Context, s *paperless.Session) (AccountFields, error) {
	found, err := findAccountFields(ctx, s)
	if err != nil {
		return AccountFields{}, err
	}
	for _, name := range []string{FieldAccountHolder, FieldAccountNumber, FieldDocumentNumber} {
		if found[name] != nil {
			continue
		}
		if _, err := s.NewCustomField(ctx, name, "string"); err != nil {
			return AccountFields{}, err
		}
		metrics.RecordObjectCreated(string(paperless.ObjectCustomField))
	}
	return LookupAccountCustomFields(ctx, s)
}

func cachedAccountFields(ctx context.Context, s *paperless.Session) (AccountFields, error) {
	var (
		out AccountFields
		err error
	)
	if out.AccountHolder, err = s.CachedCustomField(ctx, FieldAccountHolder); err != nil {
		return AccountFields{}, err
	}
	if out.AccountNumber, err = s.CachedCustomField(ctx, FieldAccountNumber); err != nil {
		return AccountFields{}, err
	}
	if out.DocumentNumber, err = s.CachedCustomField(ctx, FieldDocumentNumber); err != nil {
		return AccountFields{}, err
	}
	return out, nil
}
