// SPDX-License-Identifier: MIT

package automation

import (
	"context"
	"errors"
	"fmt"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/log"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/metrics"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/paperless"
)

// Report summarises an ensure-setup run.
type Report struct {
	// NeedsFix counts objects whose owner or permissions were wrong.
	NeedsFix int
	// Fixed counts objects that were updated.
	Fixed int
	// Missing lists predefined tags and custom fields that did not exist.
	Missing []string
	// Created lists the ones that were created.
	Created []string
}

type ownedObject struct {
	objType paperless.ObjectType
	obj     *paperless.Object
	update  func(context.Context) error
}

// EnsureSetup normalises owner and permissions of every tag, correspondent
// and document type, and creates the predefined tags and account custom
// fields.
func (r *Runner) EnsureSetup(ctx context.Context) (Report, error) {
	ctx = log.ContextWithTask(ctx, TaskEnsureSetup)
	logger := r.logger(ctx)
	s := r.session
	var report Report

	owner, err := s.DefaultOwner(ctx)
	if err != nil {
		return report, fmt.Errorf("unable to find default object owner or access groups: %w", err)
	}
	group, err := s.DefaultAccessGroup(ctx)
	if err != nil {
		return report, fmt.Errorf("unable to find default object owner or access groups: %w", err)
	}

	objects, err := r.ownedObjects(ctx)
	if err != nil {
		return report, err
	}

	for _, o := range objects {
		changed := false
		if !o.obj.Permissions.HasChangeGroup(group.ID) {
			logger.Info().
				Str(log.FieldObjectType, o.objType.Singular()).
				Str(log.FieldObjectName, o.obj.Name).
				Msgf("should add %s to '%s'", group.Name, o.obj.Name)
			changed = true
		}
		if o.obj.Owner == nil || *o.obj.Owner != owner.ID {
			logger.Info().
				Str(log.FieldObjectType, o.objType.Singular()).
				Str(log.FieldObjectName, o.obj.Name).
				Msgf("should change owner of the %s '%s' to '%s'", o.objType.Singular(), o.obj.Name, owner.Username)
			changed = true
		}
		if !changed {
			continue
		}
		report.NeedsFix++
		if !r.opts.Execute {
			continue
		}

		ownerID := owner.ID
		o.obj.Owner = &ownerID
		if o.obj.Permissions == nil {
			o.obj.Permissions = &paperless.Permissions{
				View:   paperless.UsersAndGroups{Users: []int{}, Groups: []int{}},
				Change: paperless.UsersAndGroups{Users: []int{}, Groups: []int{}},
			}
		}
		if !o.obj.Permissions.HasChangeGroup(group.ID) {
			o.obj.Permissions.Change.Groups = append(o.obj.Permissions.Change.Groups, group.ID)
		}
		if err := o.update(ctx); err != nil {
			return report, err
		}
		report.Fixed++
		r.record(ctx, o.objType, o.obj.ID, fmt.Sprintf("owner set to %s, change granted to %s", owner.Username, group.Name))
	}

	for _, name := range r.cfg.PredefinedTags.Values() {
		_, err := s.LookupTag(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, paperless.ErrNotFound) {
			return report, err
		}
		report.Missing = append(report.Missing, name)
		if !r.opts.Execute {
			logger.Info().Str(log.FieldObjectName, name).Msgf("should create the tag '%s'", name)
			continue
		}
		tag, err := s.NewTag(ctx, name, ToSlug(name))
		if err != nil {
			return report, err
		}
		metrics.RecordObjectCreated(string(paperless.ObjectTag))
		report.Created = append(report.Created, name)
		r.record(ctx, paperless.ObjectTag, tag.ID, "created tag "+name)
	}

	found, err := findAccountFields(ctx, s)
	if err != nil {
		return report, err
	}
	var missingFields []string
	for _, name := range []string{FieldAccountHolder, FieldAccountNumber, FieldDocumentNumber} {
		if found[name] == nil {
			missingFields = append(missingFields, name)
		}
	}
	if len(missingFields) == 0 {
		return report, nil
	}
	report.Missing = append(report.Missing, missingFields...)
	if !r.opts.Execute {
		logger.Info().Strs("fields", missingFields).Msg("should create the account custom fields")
		return report, nil
	}
	fields, err := EnsureAccountCustomFields(ctx, s)
	if err != nil {
		return report, err
	}
	report.Created = append(report.Created, missingFields...)
	r.record(ctx, paperless.ObjectCustomField, fields.AccountHolder.ID, "created account custom fields")
	return report, nil
}

// ownedObjects lists tags, correspondents and document types with their
// full permissions.
func (r *Runner) ownedObjects(ctx context.Context) ([]ownedObject, error) {
	s := r.session
	var out []ownedObject

	tags, err := s.Tags(ctx, true)
	if err != nil {
		return nil, err
	}
	for i := range tags {
		t := &tags[i]
		out = append(out, ownedObject{paperless.ObjectTag, &t.Object, func(ctx context.Context) error { return s.UpdateTag(ctx, *t) }})
	}

	correspondents, err := s.Correspondents(ctx, true)
	if err != nil {
		return nil, err
	}
	for i := range correspondents {
		c := &correspondents[i]
		out = append(out, ownedObject{paperless.ObjectCorrespondent, &c.Object, func(ctx context.Context) error { return s.UpdateCorrespondent(ctx, *c) }})
	}

	types, err := s.DocumentTypes(ctx, true)
	if err != nil {
		return nil, err
	}
	for i := range types {
		dt := &types[i]
		out = append(out, ownedObject{paperless.ObjectDocumentType, &dt.Object, func(ctx context.Context) error { return s.UpdateDocumentType(ctx, *dt) }})
	}
	return out, nil
}
