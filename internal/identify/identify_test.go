// SPDX-License-Identifier: MIT

package identify

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/config"
)

func strPtr(s string) *string { return &s }

var bankRule = config.Rule{
	Name:           "acme-statement",
	ServiceName:    "ACME Bank",
	DocumentType:   "Statement",
	Match:          []string{`ACME Bank plc`, `(?i)statement of account`},
	MimeTypes:      []string{"application/pdf"},
	Date:           `Statement date:\s+(?P<date>\d{2}/\d{2}/\d{4})`,
	AccountHolder:  `Account holder:\s+(?P<holder>[^\n]+)`,
	AccountNumber:  `Account number:\s+(?P<value>\d+)`,
	DocumentNumber: `Statement no\.\s+(?P<value>\S+)`,
}

var utilityRule = config.Rule{
	Name:                "power-bill",
	ServiceName:         "Power Co",
	DocumentType:        "Bill",
	Match:               []string{`Power Co Ltd`},
	Date:                `Bill date (?P<date>\d{1,2}\s+\w+\s+\d{4})`,
	DateFormats:         []string{"2 January 2006"},
	FixedAccountHolders: []string{"the household"},
}

const statementText = `ACME Bank plc
Statement of Account
Statement date: 31/01/2024
Account holder: DOE, JANE
Account holder: john   smith
Account number: 12345678
Statement no. S-0042
`

func newTestEngine(t *testing.T, rules ...config.Rule) *Engine {
	t.Helper()
	e, err := NewEngine(rules)
	require.NoError(t, err)
	return e
}

func TestIdentify_SingleMatch(t *testing.T) {
	e := newTestEngine(t, bankRule, utilityRule)

	got, err := e.Identify(statementText)
	require.NoError(t, err)

	want := NameComponents{
		Date:           time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		ServiceName:    "ACME Bank",
		AccountHolders: []string{"Jane Doe", "John Smith"},
		DocumentType:   "Statement",
		AccountNumber:  strPtr("12345678"),
		DocumentNumber: strPtr("S-0042"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Identify() mismatch (-want +got):\n%s", diff)
	}
}

func TestIdentify_FixedHoldersAndLongDate(t *testing.T) {
	e := newTestEngine(t, bankRule, utilityRule)

	got, err := e.Identify("Power Co Ltd\nBill date 3 March  2023\n")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 3, 3, 0, 0, 0, 0, time.UTC), got.Date)
	assert.Equal(t, []string{"The Household"}, got.AccountHolders)
	assert.Nil(t, got.AccountNumber)
	assert.Nil(t, got.DocumentNumber)
}

func TestIdentify_NoMatch(t *testing.T) {
	e := newTestEngine(t, bankRule)
	_, err := e.Identify("something else entirely")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestIdentify_MultipleMatches(t *testing.T) {
	other := bankRule
	other.Name = "acme-copy"
	e := newTestEngine(t, bankRule, other)

	_, err := e.Identify(statementText)
	require.ErrorIs(t, err, ErrMultipleMatches)
	assert.Contains(t, err.Error(), "acme-statement, acme-copy")
}

func TestIdentify_IncompleteDoesNotCount(t *testing.T) {
	broken := bankRule
	broken.Name = "acme-iso-date"
	broken.Date = `Statement date:\s+(?P<date>\d{4}-\d{2}-\d{2})`

	e := newTestEngine(t, broken)
	_, err := e.Identify(statementText)
	assert.ErrorIs(t, err, ErrIncomplete)

	e = newTestEngine(t, broken, bankRule)
	got, err := e.Identify(statementText)
	require.NoError(t, err)
	assert.Equal(t, "ACME Bank", got.ServiceName)
}

func TestIdentify_UnparseableDate(t *testing.T) {
	r := utilityRule
	r.DateFormats = []string{"2006-01-02"}
	e := newTestEngine(t, r)

	_, err := e.Identify("Power Co Ltd\nBill date 3 March 2023\n")
	require.ErrorIs(t, err, ErrIncomplete)
	assert.Contains(t, err.Error(), `cannot parse date "3 March 2023"`)
}

func TestIdentifyDocument_MimeType(t *testing.T) {
	e := newTestEngine(t, bankRule)

	_, err := e.IdentifyDocument(statementText, "image/png")
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = e.IdentifyDocument(statementText, "application/pdf")
	assert.NoError(t, err)
}

func TestNewEngine_Errors(t *testing.T) {
	tests := []struct {
		name string
		rule config.Rule
	}{
		{"bad match", config.Rule{Name: "x", Match: []string{"("}, Date: `(?P<date>.+)`}},
		{"missing date", config.Rule{Name: "x", Match: []string{"a"}}},
		{"date without group", config.Rule{Name: "x", Match: []string{"a"}, Date: `\d+`}},
		{"holder without group", config.Rule{Name: "x", Match: []string{"a"}, Date: `(?P<date>.+)`, AccountHolder: `.+`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine([]config.Rule{tt.rule})
			require.Error(t, err)
			assert.Contains(t, err.Error(), `rule "x"`)
		})
	}
}

func TestRenderFilename(t *testing.T) {
	base := NameComponents{
		Date:           time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		ServiceName:    "ACME Bank",
		AccountHolders: []string{"Jane Doe", "John Smith"},
		DocumentType:   "Statement",
	}

	tests := []struct {
		name    string
		mutate  func(*NameComponents)
		want    string
		wantErr bool
	}{
		{name: "holders", mutate: func(*NameComponents) {}, want: "2024-01-31 - ACME Bank - Jane Doe, John Smith - Statement.pdf"},
		{name: "no holders", mutate: func(nc *NameComponents) { nc.AccountHolders = nil }, want: "2024-01-31 - ACME Bank - Statement.pdf"},
		{
			name: "numbers",
			mutate: func(nc *NameComponents) {
				nc.AccountNumber = strPtr("1234")
				nc.DocumentNumber = strPtr("S-1")
			},
			want: "2024-01-31 - ACME Bank - Jane Doe, John Smith - Statement - 1234 - S-1.pdf",
		},
		{name: "document number only", mutate: func(nc *NameComponents) { nc.DocumentNumber = strPtr("S-1") }, want: "2024-01-31 - ACME Bank - Jane Doe, John Smith - Statement - S-1.pdf"},
		{name: "empty service", mutate: func(nc *NameComponents) { nc.ServiceName = " " }, wantErr: true},
		{name: "empty type", mutate: func(nc *NameComponents) { nc.DocumentType = "" }, wantErr: true},
		{name: "zero date", mutate: func(nc *NameComponents) { nc.Date = time.Time{} }, wantErr: true},
		{name: "slash", mutate: func(nc *NameComponents) { nc.DocumentType = "Bills/Power" }, wantErr: true},
		{name: "control", mutate: func(nc *NameComponents) { nc.AccountNumber = strPtr("12\x0034") }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nc := base
			nc.AccountHolders = append([]string(nil), base.AccountHolders...)
			tt.mutate(&nc)

			got, err := nc.RenderFilename()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFilename)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTitle(t *testing.T) {
	nc := NameComponents{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), ServiceName: "S", DocumentType: "T"}
	title, err := nc.Title()
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01 - S - T", title)

	nc.ServiceName = ""
	_, err = nc.Title()
	assert.True(t, errors.Is(err, ErrInvalidFilename))
}

func TestNormalizeAccountHolderName(t *testing.T) {
	tests := map[string]string{
		"jane doe":                 "Jane Doe",
		"  JANE   DOE ":            "Jane Doe",
		"Doe, Jane":                "Jane Doe",
		"DOE,JANE":                 "Jane Doe",
		"Doe, Jane, Jr":            "Doe, Jane, Jr",
		"jose\u0301 garci\u0301a": "Jos\u00e9 Garc\u00eda",
		"":                         "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, NormalizeAccountHolderName(in))
		})
	}
}
