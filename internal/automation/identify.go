// SPDX-License-Identifier: MIT

package automation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/config"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/identify"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/log"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/metrics"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/paperless"
)

const mimePDF = "application/pdf"

// IdentifyFilter selects the documents identify-all looks at.
type IdentifyFilter struct {
	ExcludeIdentified bool
	ExcludeScanned    bool
	OnlyInbox         bool
	// Jobs is the number of documents processed concurrently.
	Jobs int
}

// DefaultIdentifyFilter mirrors the command line defaults.
func DefaultIdentifyFilter() IdentifyFilter {
	return IdentifyFilter{ExcludeIdentified: true, ExcludeScanned: true, OnlyInbox: true, Jobs: 1}
}

// IdentifyDocument recognises doc and returns a copy with title, created
// date, correspondent, document type, custom fields and tags filled in. It
// returns false when the document could not be identified. Correspondent and
// document type are only resolved (and created) in execute mode.
func (r *Runner) IdentifyDocument(ctx context.Context, doc paperless.Document) (*paperless.Document, bool, error) {
	logger := r.logger(ctx).With().
		Int(log.FieldDocumentID, doc.ID).
		Str(log.FieldDocumentTitle, doc.Title).
		Logger()
	logger.Info().Msgf("processing document %d: '%s'", doc.ID, doc.Title)

	fields, err := cachedAccountFields(ctx, r.session)
	if err != nil {
		return nil, false, err
	}

	nc, err := r.engine.IdentifyDocument(doc.Content, doc.MimeType)
	switch {
	case errors.Is(err, identify.ErrNoMatch), errors.Is(err, identify.ErrMultipleMatches), errors.Is(err, identify.ErrIncomplete):
		logger.Warn().Err(err).Msgf("unable to find unique name for '%s' (%d)", doc.Title, doc.ID)
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	holders := make([]string, 0, len(nc.AccountHolders))
	for _, h := range nc.AccountHolders {
		holders = append(holders, r.cfg.LookupAccountHolder(h))
	}
	nc.AccountHolders = holders
	nc.ServiceName = r.cfg.LookupCorrespondent(nc.ServiceName)
	nc.DocumentType = r.cfg.LookupDocumentType(nc.DocumentType)

	title, err := nc.Title()
	if err != nil {
		logger.Warn().Err(err).Msgf("filename found for '%s' (%d) is invalid", doc.Title, doc.ID)
		return nil, false, nil
	}
	logger.Info().Str("identified_as", title).Msg("document identified")

	out := doc
	out.Tags = slices.Clone(doc.Tags)
	out.Title = title
	out.CreatedDate = nc.Date.Format("2006-01-02")

	if r.opts.Execute {
		if err := r.ensureClassification(ctx, &out, nc.ServiceName, nc.DocumentType); err != nil {
			return nil, false, err
		}
	}

	// Account and document numbers may have been filled in by hand; keep
	// them unless the rule found new ones.
	overwrite := []int{fields.AccountHolder.ID}
	if nc.AccountNumber != nil {
		overwrite = append(overwrite, fields.AccountNumber.ID)
	}
	if nc.DocumentNumber != nil {
		overwrite = append(overwrite, fields.DocumentNumber.ID)
	}
	values := make([]paperless.CustomFieldValue, 0, len(doc.CustomFields)+3)
	for _, v := range doc.CustomFields {
		if !slices.Contains(overwrite, v.Field) {
			values = append(values, v)
		}
	}
	values = append(values, paperless.CustomFieldValue{Field: fields.AccountHolder.ID, Value: strings.Join(holders, " & ")})
	if nc.AccountNumber != nil {
		values = append(values, paperless.CustomFieldValue{Field: fields.AccountNumber.ID, Value: *nc.AccountNumber})
	}
	if nc.DocumentNumber != nil {
		values = append(values, paperless.CustomFieldValue{Field: fields.DocumentNumber.ID, Value: *nc.DocumentNumber})
	}
	out.CustomFields = values

	if name, ok := r.cfg.PredefinedTags.Get(config.KeyIdentified); ok {
		tag, err := r.session.LookupTag(ctx, name)
		if err != nil {
			return nil, false, err
		}
		out.AddTag(tag.ID)
	}
	return &out, true, nil
}

func (r *Runner) ensureClassification(ctx context.Context, doc *paperless.Document, correspondent, documentType string) error {
	r.ensureMu.Lock()
	defer r.ensureMu.Unlock()

	c, err := EnsureCorrespondent(ctx, r.session, correspondent)
	if err != nil {
		return err
	}
	doc.Correspondent = &c.ID

	dt, err := EnsureDocumentType(ctx, r.session, documentType)
	if err != nil {
		return err
	}
	doc.DocumentType = &dt.ID
	return nil
}

// apply PATCHes an identified or sorted document in execute mode and
// records the outcome.
func (r *Runner) apply(ctx context.Context, task string, before paperless.Document, after *paperless.Document, summary string) (string, error) {
	logger := r.logger(ctx).With().Int(log.FieldDocumentID, before.ID).Logger()
	if !r.opts.Execute {
		logger.Info().Str("change", summary).Msgf("would update document '%s'", before.Title)
		metrics.RecordDocument(task, metrics.OutcomeDryRun)
		return metrics.OutcomeDryRun, nil
	}
	if _, err := r.session.UpdateDocument(ctx, *after); err != nil {
		metrics.RecordDocument(task, metrics.OutcomeFailed)
		return metrics.OutcomeFailed, err
	}
	logger.Info().Msgf("document '%s' updated", before.Title)
	metrics.RecordDocument(task, metrics.OutcomeUpdated)
	r.record(ctx, paperless.ObjectDocument, before.ID, summary)
	return metrics.OutcomeUpdated, nil
}

func identifySummary(before paperless.Document, after *paperless.Document) string {
	return fmt.Sprintf("title %q -> %q, created %s", before.Title, after.Title, after.CreatedDate)
}

// Identify identifies the given documents one by one.
func (r *Runner) Identify(ctx context.Context, ids []int) (Summary, error) {
	ctx = log.ContextWithTask(ctx, TaskIdentify)
	var sum Summary
	for _, id := range ids {
		doc, err := r.session.Document(ctx, id)
		if err != nil {
			return sum, err
		}
		logger := r.logger(ctx)
		logger.Info().Int(log.FieldDocumentID, id).Msgf("found document: %s", doc.Title)

		outcome, err := r.identifyOne(ctx, TaskIdentify, doc)
		sum.add(outcome)
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (r *Runner) identifyOne(ctx context.Context, task string, doc paperless.Document) (string, error) {
	return perDocument(ctx, task, doc, func(ctx context.Context) (string, error) {
		return r.identifyDoc(ctx, task, doc)
	})
}

func (r *Runner) identifyDoc(ctx context.Context, task string, doc paperless.Document) (string, error) {
	identified, ok, err := r.IdentifyDocument(ctx, doc)
	if err != nil {
		metrics.RecordDocument(task, metrics.OutcomeFailed)
		return metrics.OutcomeFailed, fmt.Errorf("identify document %d: %w", doc.ID, err)
	}
	if !ok {
		metrics.RecordDocument(task, metrics.OutcomeSkipped)
		return metrics.OutcomeSkipped, nil
	}
	return r.apply(ctx, task, doc, identified, identifySummary(doc, identified))
}

// IdentifyAll identifies every PDF document accepted by filter.
func (r *Runner) IdentifyAll(ctx context.Context, filter IdentifyFilter) (Summary, error) {
	ctx = log.ContextWithTask(ctx, TaskIdentifyAll)
	logger := r.logger(ctx)
	var sum Summary

	inboxName, hasInbox := r.cfg.PredefinedTags.Get(config.KeyInbox)
	if filter.OnlyInbox && !hasInbox {
		return sum, usageErrorf("unable to use --only-inbox if no inbox tag is configured")
	}

	var excluded []int
	identifiedName, hasIdentified := r.cfg.PredefinedTags.Get(config.KeyIdentified)
	switch {
	case filter.ExcludeIdentified && !hasIdentified:
		logger.Warn().Msg("no identified tag present, will not exclude any document")
	case filter.ExcludeIdentified:
		tag, err := r.session.LookupTag(ctx, identifiedName)
		if err != nil {
			return sum, err
		}
		excluded = append(excluded, tag.ID)
	}
	if scannedName, ok := r.cfg.PredefinedTags.Get(config.KeyScanned); ok && filter.ExcludeScanned {
		tag, err := r.session.LookupTag(ctx, scannedName)
		if err != nil {
			return sum, err
		}
		excluded = append(excluded, tag.ID)
	}
	inboxID := 0
	if filter.OnlyInbox {
		tag, err := r.session.LookupTag(ctx, inboxName)
		if err != nil {
			return sum, err
		}
		inboxID = tag.ID
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, filter.Jobs))

	err := r.session.EachDocument(gctx, false, func(doc paperless.Document) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		if doc.MimeType != mimePDF ||
			slices.ContainsFunc(excluded, doc.HasTag) ||
			(filter.OnlyInbox && !doc.HasTag(inboxID)) {
			return nil
		}
		g.Go(func() error {
			outcome, err := r.identifyOne(gctx, TaskIdentifyAll, doc)
			mu.Lock()
			sum.add(outcome)
			mu.Unlock()
			return err
		})
		return nil
	})
	if waitErr := g.Wait(); waitErr != nil {
		return sum, waitErr
	}
	return sum, err
}

func (s *Summary) add(outcome string) {
	s.Considered++
	switch outcome {
	case metrics.OutcomeUpdated:
		s.Updated++
	case metrics.OutcomeDryRun:
		s.DryRun++
	case metrics.OutcomeSkipped:
		s.Skipped++
	case metrics.OutcomeFailed:
		s.Failed++
	}
}
