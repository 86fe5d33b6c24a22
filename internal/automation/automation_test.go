// SPDX-License-Identifier: MIT

package automation

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/config"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/fsutil"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/journal"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/metrics"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/paperless"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/paperless/paperlesstest"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/telemetry"
)

const statementText = `ACME Bank plc
Statement date: 31/01/2024
Account holder: Doe, Jane
Account holder: JOHN SMITH
Account number: 12345678
`

type fixture struct {
	srv     *paperlesstest.Server
	session *paperless.Session
	cfg     *config.Config
	journal *journal.Journal

	owner, group int
}

func testConfig(url string) *config.Config {
	cfg := config.Defaults()
	cfg.URL = url
	cfg.ObjectOwner = "owner"
	cfg.AllAccessGroup = "family"
	cfg.ScanSoftware = []string{"ScanSnap", "Canon"}
	cfg.PredefinedTags = config.PredefinedTags{Identified: "identified", Inbox: "inbox", Scanned: "scanned"}
	cfg.PredefinedStoragePaths = config.PredefinedStoragePaths{Unsorted: "Unsorted", Scanned: "Scans"}
	cfg.Aliases.Correspondent = map[string]string{"ACME Bank": "ACME"}
	cfg.Aliases.AccountHolder = map[string]string{"Jane Doe": "Jane"}
	cfg.Rules = []config.Rule{{
		Name:          "acme",
		ServiceName:   "ACME Bank",
		DocumentType:  "Statement",
		Match:         []string{`ACME Bank plc`},
		Date:          `Statement date: (?P<date>\S+)`,
		AccountHolder: `Account holder: (?P<holder>[^\n]+)`,
		AccountNumber: `Account number: (?P<value>\d+)`,
	}}
	return &cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := paperlesstest.NewServer()
	t.Cleanup(srv.Close)
	f := &fixture{srv: srv}
	f.owner = srv.AddUser("owner")
	f.group = srv.AddGroup("family")
	f.cfg = testConfig(srv.URL)

	s, err := paperless.Open(context.Background(), paperless.Options{
		BaseURL:        srv.URL,
		ObjectOwner:    "owner",
		AllAccessGroup: "family",
		Backoff:        time.Millisecond,
		MaxBackoff:     time.Millisecond,
		RateLimit:      1000,
		RateLimitBurst: 100,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	f.session = s

	j, err := journal.Open(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	f.journal = j
	return f
}

func (f *fixture) runner(t *testing.T, execute bool) *Runner {
	t.Helper()
	r, err := NewRunner(f.session, f.cfg, f.journal, Options{Execute: execute})
	require.NoError(t, err)
	return r
}

func (f *fixture) addAccountFields() (holder, number, docNumber int) {
	return f.srv.AddCustomField(FieldAccountHolder, "string"),
		f.srv.AddCustomField(FieldAccountNumber, "string"),
		f.srv.AddCustomField(FieldDocumentNumber, "string")
}

func (f *fixture) addTag(name string) int {
	return f.srv.AddObject(paperless.ObjectTag, name, &f.owner, nil)
}

func (f *fixture) history(t *testing.T) []journal.Change {
	t.Helper()
	changes, err := f.journal.List(context.Background(), journal.Filter{Limit: 100})
	require.NoError(t, err)
	return changes
}

func TestToSlug(t *testing.T) {
	assert.Equal(t, "bank-statement", ToSlug("Bank Statement"))
	assert.Equal(t, "café---co-", ToSlug("Café & Co."))
	assert.Equal(t, "snake_case", ToSlug("Snake_Case"))
}

func TestDocumentRefParser(t *testing.T) {
	p := NewDocumentRefParser("https://paperless.example.com/")

	tests := []struct {
		ref     string
		want    int
		wantErr bool
	}{
		{ref: "42", want: 42},
		{ref: "https://paperless.example.com/documents/17/details", want: 17},
		{ref: "https://paperless.example.com/documents/9", want: 9},
		{ref: "https://paperless.example.com//documents/3/", wantErr: true},
		{ref: "https://other.example.com/documents/9", wantErr: true},
		{ref: "https://paperless.example.comXdocuments/9", wantErr: true},
		{ref: "abc", wantErr: true},
		{ref: "-1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := p.Parse(tt.ref)
			if tt.wantErr {
				var usage *UsageError
				require.ErrorAs(t, err, &usage)
				assert.Contains(t, usage.Error(), tt.ref)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	ids, err := p.ParseAll([]string{"1", "https://paperless.example.com/documents/2/"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids)
}

func TestEnsureCorrespondentAndDocumentType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.srv.AddObject(paperless.ObjectCorrespondent, "ACME", nil, nil)

	c, err := EnsureCorrespondent(ctx, f.session, "acme")
	require.NoError(t, err)
	assert.Equal(t, existing, c.ID)
	assert.Empty(t, f.srv.Writes())

	dt, err := EnsureDocumentType(ctx, f.session, "Bank Statement")
	require.NoError(t, err)
	assert.Equal(t, "Bank Statement", dt.Name)
	assert.Equal(t, "bank-statement", dt.Slug)
	assert.Equal(t, 1, f.srv.Count(paperless.ObjectDocumentType))
}

func TestAccountCustomFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	holder := f.srv.AddCustomField(FieldAccountHolder, "string")

	_, err := LookupAccountCustomFields(ctx, f.session)
	require.ErrorIs(t, err, paperless.ErrNotFound)
	assert.Contains(t, err.Error(), "'Account Holder', 'Account Number', or 'Document Number'")

	fields, err := EnsureAccountCustomFields(ctx, f.session)
	require.NoError(t, err)
	assert.Equal(t, holder, fields.AccountHolder.ID)
	assert.Equal(t, FieldAccountNumber, fields.AccountNumber.Name)
	assert.Equal(t, "string", fields.DocumentNumber.DataType)
	assert.Len(t, f.srv.Writes(), 2)

	f.srv.AddCustomField(FieldAccountNumber, "string")
	_, err = LookupAccountCustomFields(ctx, f.session)
	assert.ErrorIs(t, err, paperless.ErrAmbiguous)
}

func TestEnsureSetup_DryRun(t *testing.T) {
	f := newFixture(t)
	other := f.srv.AddUser("someone")
	f.srv.AddObject(paperless.ObjectTag, "inbox", &other, nil)
	f.srv.AddObject(paperless.ObjectCorrespondent, "ACME", &f.owner,
		&paperless.Permissions{Change: paperless.UsersAndGroups{Users: []int{}, Groups: []int{f.group}}})

	report, err := f.runner(t, false).EnsureSetup(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.NeedsFix)
	assert.Zero(t, report.Fixed)
	assert.ElementsMatch(t, []string{"identified", "scanned", FieldAccountHolder, FieldAccountNumber, FieldDocumentNumber}, report.Missing)
	assert.Empty(t, report.Created)
	assert.Empty(t, f.srv.Writes())
	assert.Empty(t, f.history(t))
}

func TestEnsureSetup_Execute(t *testing.T) {
	f := newFixture(t)
	other := f.srv.AddUser("someone")
	f.srv.AddObject(paperless.ObjectTag, "inbox", &other,
		&paperless.Permissions{Change: paperless.UsersAndGroups{Users: []int{}, Groups: []int{f.group}}})
	f.srv.AddObject(paperless.ObjectDocumentType, "Invoice", &f.owner, nil)
	f.srv.AddCustomField(FieldAccountHolder, "string")

	report, err := f.runner(t, true).EnsureSetup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.NeedsFix)
	assert.Equal(t, 2, report.Fixed)
	assert.Equal(t, []string{"identified", "scanned", FieldAccountNumber, FieldDocumentNumber}, report.Created)

	inbox, ok := f.srv.Object(paperless.ObjectTag, "inbox")
	require.True(t, ok)
	assert.EqualValues(t, f.owner, inbox["owner"])
	change := inbox["permissions"].(map[string]any)["change"].(map[string]any)
	assert.Equal(t, []any{float64(f.group)}, change["groups"], "group is not added twice")

	invoice, ok := f.srv.Object(paperless.ObjectDocumentType, "Invoice")
	require.True(t, ok)
	change = invoice["permissions"].(map[string]any)["change"].(map[string]any)
	assert.Equal(t, []any{float64(f.group)}, change["groups"])

	identified, ok := f.srv.Object(paperless.ObjectTag, "identified")
	require.True(t, ok)
	assert.Equal(t, "identified", identified["slug"])
	assert.EqualValues(t, 0, identified["matching_algorithm"])
	assert.Equal(t, 3, f.srv.Count(paperless.ObjectCustomField))

	// 2 object fixes, 2 tags, 1 custom field entry.
	assert.Len(t, f.history(t), 5)

	report, err = f.runner(t, true).EnsureSetup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.NeedsFix)
	assert.Empty(t, report.Missing)
}

func TestEnsureSetup_MissingOwner(t *testing.T) {
	f := newFixture(t)
	f.cfg.ObjectOwner = "nobody"
	s, err := paperless.Open(context.Background(), paperless.Options{
		BaseURL: f.srv.URL, ObjectOwner: "nobody", AllAccessGroup: "family",
	})
	require.NoError(t, err)
	defer s.Close()

	r, err := NewRunner(s, f.cfg, nil, Options{Execute: true})
	require.NoError(t, err)
	_, err = r.EnsureSetup(context.Background())
	require.ErrorIs(t, err, paperless.ErrNotFound)
	assert.Contains(t, err.Error(), "unable to find default object owner")
	assert.Contains(t, err.Error(), "nobody")
}

func TestIdentifyDocument(t *testing.T) {
	f := newFixture(t)
	holder, number, docNumber := f.addAccountFields()
	identifiedTag := f.addTag("identified")
	inbox := f.addTag("inbox")
	doc := paperless.Document{
		ID:       1,
		Title:    "scan_001",
		Content:  statementText,
		MimeType: "application/pdf",
		Tags:     []int{inbox},
		CustomFields: []paperless.CustomFieldValue{
			{Field: number, Value: "old"},
			{Field: docNumber, Value: "typed by hand"},
		},
	}

	t.Run("dry run", func(t *testing.T) {
		got, ok, err := f.runner(t, false).IdentifyDocument(context.Background(), doc)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "2024-01-31 - ACME - Jane, John Smith - Statement - 12345678", got.Title)
		assert.Equal(t, "2024-01-31", got.CreatedDate)
		assert.Nil(t, got.Correspondent)
		assert.Zero(t, f.srv.Count(paperless.ObjectCorrespondent))
		assert.Equal(t, []int{inbox}, doc.Tags, "input is not modified")
	})

	t.Run("execute", func(t *testing.T) {
		got, ok, err := f.runner(t, true).IdentifyDocument(context.Background(), doc)
		require.NoError(t, err)
		require.True(t, ok)

		require.NotNil(t, got.Correspondent)
		c, found := f.srv.Object(paperless.ObjectCorrespondent, "ACME")
		require.True(t, found)
		assert.EqualValues(t, c["id"], *got.Correspondent)
		require.NotNil(t, got.DocumentType)
		assert.Equal(t, []int{inbox, identifiedTag}, got.Tags)
		assert.Equal(t, []paperless.CustomFieldValue{
			{Field: docNumber, Value: "typed by hand"},
			{Field: holder, Value: "Jane & John Smith"},
			{Field: number, Value: "12345678"},
		}, got.CustomFields)
	})

	t.Run("unidentified", func(t *testing.T) {
		other := doc
		other.Content = "nothing to see"
		got, ok, err := f.runner(t, true).IdentifyDocument(context.Background(), other)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})
}

func TestIdentifyDocument_InvalidFilename(t *testing.T) {
	f := newFixture(t)
	f.addAccountFields()
	f.cfg.Aliases.DocumentType = map[string]string{"Statement": "Bank/Statement"}

	got, ok, err := f.runner(t, true).IdentifyDocument(context.Background(), paperless.Document{ID: 1, Content: statementText})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Empty(t, f.srv.Writes())
}

func TestIdentifyDocument_MissingCustomFields(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.runner(t, false).IdentifyDocument(context.Background(), paperless.Document{ID: 1, Content: statementText})
	assert.ErrorIs(t, err, paperless.ErrNotFound)
}

func TestIdentify_ByID(t *testing.T) {
	f := newFixture(t)
	f.addAccountFields()
	f.addTag("identified")
	id := f.srv.AddDocument(paperless.Document{Title: "scan", Content: statementText, MimeType: "application/pdf"})

	sum, err := f.runner(t, true).Identify(context.Background(), []int{id})
	require.NoError(t, err)
	assert.Equal(t, Summary{Considered: 1, Updated: 1}, sum)

	stored, ok := f.srv.Document(id)
	require.True(t, ok)
	assert.Equal(t, "2024-01-31 - ACME - Jane, John Smith - Statement - 12345678", stored.Title)

	changes := f.history(t)
	require.Len(t, changes, 1)
	assert.Equal(t, TaskIdentify, changes[0].Task)
	assert.Equal(t, id, changes[0].ObjectID)

	_, err = f.runner(t, true).Identify(context.Background(), []int{9999})
	assert.ErrorIs(t, err, paperless.ErrNotFound)
}

func TestIdentifyAll(t *testing.T) {
	f := newFixture(t)
	f.addAccountFields()
	identified := f.addTag("identified")
	inbox := f.addTag("inbox")
	scanned := f.addTag("scanned")

	pdf := func(title string, tags ...int) paperless.Document {
		return paperless.Document{Title: title, Content: statementText, MimeType: "application/pdf", Tags: tags}
	}
	target := f.srv.AddDocument(pdf("target", inbox))
	second := f.srv.AddDocument(pdf("second", inbox))
	f.srv.AddDocument(pdf("not in inbox"))
	f.srv.AddDocument(pdf("already identified", inbox, identified))
	f.srv.AddDocument(pdf("scanned", inbox, scanned))
	f.srv.AddDocument(paperless.Document{Title: "photo", Content: statementText, MimeType: "image/jpeg", Tags: []int{inbox}})
	f.srv.AddDocument(paperless.Document{Title: "unknown", Content: "???", MimeType: "application/pdf", Tags: []int{inbox}})

	filter := DefaultIdentifyFilter()
	filter.Jobs = 3

	sum, err := f.runner(t, false).IdentifyAll(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, Summary{Considered: 3, DryRun: 2, Skipped: 1}, sum)
	assert.Empty(t, f.srv.Writes())

	sum, err = f.runner(t, true).IdentifyAll(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Updated)
	for _, id := range []int{target, second} {
		doc, ok := f.srv.Document(id)
		require.True(t, ok)
		assert.Contains(t, doc.Tags, identified)
		assert.Equal(t, "2024-01-31", doc.CreatedDate)
	}

	sum, err = f.runner(t, true).IdentifyAll(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, Summary{Considered: 1, Skipped: 1}, sum, "identified documents are excluded on the next run")
}

func TestIdentifyAll_NoIdentifiedTagConfigured(t *testing.T) {
	f := newFixture(t)
	f.addAccountFields()
	f.cfg.PredefinedTags.Identified = ""
	f.srv.AddDocument(paperless.Document{Title: "a", Content: statementText, MimeType: "application/pdf"})

	filter := IdentifyFilter{ExcludeIdentified: true, Jobs: 1}
	sum, err := f.runner(t, false).IdentifyAll(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.DryRun)
}

func TestIdentifyAll_OnlyInboxRequiresTag(t *testing.T) {
	f := newFixture(t)
	f.cfg.PredefinedTags.Inbox = ""

	_, err := f.runner(t, false).IdentifyAll(context.Background(), DefaultIdentifyFilter())
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Error(), "--only-inbox")
}

func TestIdentifyAll_StopsOnUpdateFailure(t *testing.T) {
	f := newFixture(t)
	f.addAccountFields()
	f.addTag("identified")
	id := f.srv.AddDocument(paperless.Document{Title: "a", Content: statementText, MimeType: "application/pdf"})
	f.srv.FailNext(http.MethodPatch, "/api/documents/"+itoa(id)+"/", http.StatusBadRequest, 1)

	filter := IdentifyFilter{ExcludeIdentified: true, Jobs: 2}
	sum, err := f.runner(t, true).IdentifyAll(context.Background(), filter)
	require.Error(t, err)
	assert.ErrorIs(t, err, paperless.ErrUpstreamError)
	assert.Equal(t, 1, sum.Failed)
}

func TestSortScanned(t *testing.T) {
	f := newFixture(t)
	inbox := f.addTag("inbox")
	scanned := f.addTag("scanned")
	unsorted := f.srv.AddObject(paperless.ObjectStoragePath, "Unsorted", nil, nil)
	scans := f.srv.AddObject(paperless.ObjectStoragePath, "Scans", nil, nil)
	elsewhere := f.srv.AddObject(paperless.ObjectStoragePath, "Elsewhere", nil, nil)

	producer := func(p string) paperless.DocumentMetadata {
		return paperless.DocumentMetadata{OriginalMetadata: []paperless.MetadataEntry{{Key: "Producer", Value: p}}}
	}
	add := func(title string, path *int, md paperless.DocumentMetadata, tags ...int) int {
		id := f.srv.AddDocument(paperless.Document{Title: title, StoragePath: path, Tags: tags})
		f.srv.SetMetadata(id, md)
		return id
	}
	noPath := add("no path", nil, producer("ScanSnap Manager #iX1500"), inbox)
	fromUnsorted := add("unsorted", &unsorted, producer("Canon MF"), inbox)
	kept := add("kept", &elsewhere, producer("Canon MF"), inbox)
	add("not scanned", nil, producer("LibreOffice"), inbox)
	add("no producer", nil, paperless.DocumentMetadata{}, inbox)
	add("outside inbox", nil, producer("Canon MF"))
	add("already sorted", nil, producer("Canon MF"), inbox, scanned)

	sum, err := f.runner(t, true).SortScanned(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, Summary{Considered: 7, Updated: 3, Skipped: 4}, sum)

	check := func(id int, wantPath int) {
		t.Helper()
		doc, ok := f.srv.Document(id)
		require.True(t, ok)
		assert.Contains(t, doc.Tags, scanned)
		require.NotNil(t, doc.StoragePath)
		assert.Equal(t, wantPath, *doc.StoragePath)
	}
	check(noPath, scans)
	check(fromUnsorted, scans)
	check(kept, elsewhere)

	metadataCalls := 0
	for _, r := range f.srv.Requests() {
		if filepath.Base(r.Path) == "metadata" {
			metadataCalls++
		}
	}
	assert.Equal(t, 5, metadataCalls, "documents outside the inbox or already tagged are not inspected")
	assert.Len(t, f.history(t), 3)
}

func TestSortScanned_UsageErrors(t *testing.T) {
	f := newFixture(t)

	f.cfg.ScanSoftware = nil
	_, err := f.runner(t, false).SortScanned(context.Background(), false)
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Error(), "scan software")

	f.cfg.ScanSoftware = []string{"Canon"}
	f.cfg.PredefinedTags.Inbox = ""
	_, err = f.runner(t, false).SortScanned(context.Background(), true)
	require.ErrorAs(t, err, &usage)
}

func TestSortScanned_MissingStoragePath(t *testing.T) {
	f := newFixture(t)
	f.addTag("inbox")
	f.addTag("scanned")

	_, err := f.runner(t, false).SortScanned(context.Background(), true)
	assert.ErrorIs(t, err, paperless.ErrNotFound)
}

func TestDownload(t *testing.T) {
	f := newFixture(t)
	id := f.srv.AddDocument(paperless.Document{Title: "scan"})
	archive := paperlesstest.File{Name: "archive.pdf", ContentType: "application/pdf", Data: []byte("archived")}
	f.srv.SetFiles(id, paperlesstest.File{Name: "../../photo.JPG", ContentType: "image/jpeg", Data: []byte("jpeg")}, &archive)
	dir := t.TempDir()
	r := f.runner(t, false)
	ctx := context.Background()

	paths, err := r.Download(ctx, []int{id}, DownloadOptions{Dir: dir})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, itoa(id)+".JPG"), paths[0])
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	paths, err = r.Download(ctx, []int{id}, DownloadOptions{Dir: dir, Archived: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, itoa(id)+".pdf"), paths[0])

	_, err = r.Download(ctx, []int{id}, DownloadOptions{Dir: dir, Archived: true})
	assert.True(t, errors.Is(err, fsutil.ErrExists))

	_, err = r.Download(ctx, []int{id}, DownloadOptions{Dir: dir, Archived: true, Overwrite: true})
	assert.NoError(t, err)
}

func TestDownload_CreatesOutputDir(t *testing.T) {
	f := newFixture(t)
	id := f.srv.AddDocument(paperless.Document{Title: "scan"})
	f.srv.SetFiles(id, paperlesstest.File{Name: "scan.pdf", ContentType: "application/pdf", Data: []byte("pdf")}, nil)
	dir := filepath.Join(t.TempDir(), "new", "out")

	paths, err := f.runner(t, false).Download(context.Background(), []int{id}, DownloadOptions{Dir: dir})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, itoa(id)+".pdf")}, paths)
	assert.FileExists(t, paths[0])
}

func itoa(i int) string { return strconv.Itoa(i) }

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(noop.NewTracerProvider())
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestPerDocumentSpan(t *testing.T) {
	rec := recordSpans(t)
	ctx := context.Background()
	doc := paperless.Document{ID: 7, Title: "scan"}

	outcome, err := perDocument(ctx, TaskSortScanned, doc, func(context.Context) (string, error) {
		return metrics.OutcomeSkipped, nil
	})
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeSkipped, outcome)

	_, err = perDocument(ctx, TaskIdentifyAll, doc, func(context.Context) (string, error) {
		return metrics.OutcomeFailed, errors.New("patch rejected")
	})
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "sort-scanned.document", spans[0].Name())
	attrs := spanAttrs(spans[0])
	assert.Equal(t, int64(7), attrs[telemetry.DocumentIDKey].AsInt64())
	assert.Equal(t, "scan", attrs[telemetry.DocumentTitleKey].AsString())
	assert.Equal(t, metrics.OutcomeSkipped, attrs[telemetry.TaskOutcomeKey].AsString())

	assert.Equal(t, "identify-all.document", spans[1].Name())
	assert.Equal(t, metrics.OutcomeFailed, spanAttrs(spans[1])[telemetry.TaskOutcomeKey].AsString())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
