// SPDX-License-Identifier: MIT

package automation

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/config"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/log"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/metrics"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/paperless"
)

type sortTargets struct {
	inboxTag     *int
	scannedTag   *int
	scannedPath  *int
	unsortedPath *int
	scanSoftware []string
}

// SortScanned tags documents produced by the configured scanning software
// and moves them to the scanned storage path.
func (r *Runner) SortScanned(ctx context.Context, onlyInbox bool) (Summary, error) {
	ctx = log.ContextWithTask(ctx, TaskSortScanned)
	var sum Summary

	if _, ok := r.cfg.PredefinedTags.Get(config.KeyInbox); onlyInbox && !ok {
		return sum, usageErrorf("unable to use --only-inbox if no inbox tag is configured")
	}
	if len(r.cfg.ScanSoftware) == 0 {
		return sum, usageErrorf("unable to sort scanned documents if no scan software is defined")
	}

	t, err := r.sortTargets(ctx, onlyInbox)
	if err != nil {
		return sum, err
	}

	err = r.session.EachDocument(ctx, false, func(doc paperless.Document) error {
		outcome, err := perDocument(ctx, TaskSortScanned, doc, func(ctx context.Context) (string, error) {
			return r.sortOne(ctx, t, doc)
		})
		sum.add(outcome)
		return err
	})
	return sum, err
}

func (r *Runner) sortTargets(ctx context.Context, onlyInbox bool) (sortTargets, error) {
	t := sortTargets{scanSoftware: r.cfg.ScanSoftware}

	tagID := func(key string) (*int, error) {
		name, ok := r.cfg.PredefinedTags.Get(key)
		if !ok {
			return nil, nil
		}
		tag, err := r.session.LookupTag(ctx, name)
		if err != nil {
			return nil, err
		}
		return &tag.ID, nil
	}
	pathID := func(key string) (*int, error) {
		name, ok := r.cfg.PredefinedStoragePaths.Get(key)
		if !ok {
			return nil, nil
		}
		sp, err := r.session.LookupStoragePath(ctx, name)
		if err != nil {
			return nil, err
		}
		return &sp.ID, nil
	}

	var err error
	if onlyInbox {
		if t.inboxTag, err = tagID(config.KeyInbox); err != nil {
			return t, err
		}
	}
	if t.scannedTag, err = tagID(config.KeyScanned); err != nil {
		return t, err
	}
	if t.scannedPath, err = pathID(config.KeyScanned); err != nil {
		return t, err
	}
	if t.unsortedPath, err = pathID(config.KeyUnsorted); err != nil {
		return t, err
	}
	return t, nil
}

func (r *Runner) sortOne(ctx context.Context, t sortTargets, doc paperless.Document) (string, error) {
	skip := func() (string, error) {
		metrics.RecordDocument(TaskSortScanned, metrics.OutcomeSkipped)
		return metrics.OutcomeSkipped, nil
	}

	if t.inboxTag != nil && !doc.HasTag(*t.inboxTag) {
		return skip()
	}
	// Already tagged documents need no metadata round trip.
	if t.scannedTag != nil && doc.HasTag(*t.scannedTag) {
		return skip()
	}

	md, err := r.session.DocumentMetadata(ctx, doc.ID)
	if err != nil {
		metrics.RecordDocument(TaskSortScanned, metrics.OutcomeFailed)
		return metrics.OutcomeFailed, err
	}
	producer := md.OriginalProducer()
	if producer == "" || !slices.ContainsFunc(t.scanSoftware, func(sw string) bool {
		return strings.Contains(producer, sw)
	}) {
		return skip()
	}

	out := doc
	out.Tags = slices.Clone(doc.Tags)
	var changes []string
	if t.scannedTag != nil && out.AddTag(*t.scannedTag) {
		changes = append(changes, fmt.Sprintf("tag %d added", *t.scannedTag))
	}
	if out.StoragePath == nil ||
		(t.scannedPath != nil && t.unsortedPath != nil && *out.StoragePath == *t.unsortedPath) {
		out.StoragePath = t.scannedPath
		if t.scannedPath != nil {
			changes = append(changes, fmt.Sprintf("storage path set to %d", *t.scannedPath))
		}
	}

	summary := fmt.Sprintf("scanned by %q", producer)
	if len(changes) > 0 {
		summary += ": " + strings.Join(changes, ", ")
	}
	return r.apply(ctx, TaskSortScanned, doc, &out, summary)
}
