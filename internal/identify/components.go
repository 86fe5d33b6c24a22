// SPDX-License-Identifier: MIT

package identify

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NameComponents are the parts a document's canonical name is built from.
type NameComponents struct {
	Date           time.Time
	ServiceName    string
	AccountHolders []string
	DocumentType   string
	AccountNumber  *string
	DocumentNumber *string
}

func (nc *NameComponents) addHolder(name string) {
	name = NormalizeAccountHolderName(name)
	if name == "" || slices.Contains(nc.AccountHolders, name) {
		return
	}
	nc.AccountHolders = append(nc.AccountHolders, name)
}

// RenderFilename returns
// "YYYY-MM-DD - Service - Holder1, Holder2 - Document Type[ - Account][ - Number].pdf".
// The holder segment is omitted when there are no holders.
func (nc NameComponents) RenderFilename() (string, error) {
	if strings.TrimSpace(nc.ServiceName) == "" {
		return "", fmt.Errorf("%w: missing service name", ErrInvalidFilename)
	}
	if strings.TrimSpace(nc.DocumentType) == "" {
		return "", fmt.Errorf("%w: missing document type", ErrInvalidFilename)
	}
	if nc.Date.IsZero() {
		return "", fmt.Errorf("%w: missing date", ErrInvalidFilename)
	}

	parts := []string{nc.Date.Format("2006-01-02"), nc.ServiceName}
	if len(nc.AccountHolders) > 0 {
		parts = append(parts, strings.Join(nc.AccountHolders, ", "))
	}
	parts = append(parts, nc.DocumentType)
	if nc.AccountNumber != nil {
		parts = append(parts, *nc.AccountNumber)
	}
	if nc.DocumentNumber != nil {
		parts = append(parts, *nc.DocumentNumber)
	}

	for _, p := range parts {
		if strings.ContainsFunc(p, func(r rune) bool { return r == '/' || unicode.IsControl(r) }) {
			return "", fmt.Errorf("%w: component %q contains a path separator or control character", ErrInvalidFilename, p)
		}
	}
	return strings.Join(parts, " - ") + ".pdf", nil
}

// Title is the rendered filename without its extension.
func (nc NameComponents) Title() (string, error) {
	name, err := nc.RenderFilename()
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(name, ".pdf"), nil
}

// NormalizeAccountHolderName returns name in NFC, with whitespace collapsed,
// title-cased and "Lastname, Firstname" turned into "Firstname Lastname".
func NormalizeAccountHolderName(name string) string {
	name = norm.NFC.String(name)
	name = strings.Join(strings.Fields(name), " ")

	if last, first, ok := strings.Cut(name, ","); ok && !strings.Contains(first, ",") {
		last, first = strings.TrimSpace(last), strings.TrimSpace(first)
		if last != "" && first != "" {
			name = first + " " + last
		}
	}
	return cases.Title(language.Und).String(name)
}
