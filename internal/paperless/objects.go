// SPDX-License-Identifier: MIT

package paperless

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/telemetry"
)

// Users lists every user.
func (s *Session) Users(ctx context.Context) ([]User, error) {
	return list[User](ctx, s, ObjectUser, nil)
}

// Groups lists every group.
func (s *Session) Groups(ctx context.Context) ([]Group, error) {
	return list[Group](ctx, s, ObjectGroup, nil)
}

// Tags lists every tag. With fullPermissions the permissions are included.
func (s *Session) Tags(ctx context.Context, fullPermissions bool) ([]Tag, error) {
	return list[Tag](ctx, s, ObjectTag, permsQuery(fullPermissions))
}

// LookupTag finds a tag by name, ignoring case.
func (s *Session) LookupTag(ctx context.Context, name string) (Tag, error) {
	return lookupByName[Tag](ctx, s, ObjectTag, name)
}

// UpdateTag writes the owner and permissions of tag.
func (s *Session) UpdateTag(ctx context.Context, tag Tag) error {
	return s.updateOwnership(ctx, ObjectTag, tag.Object)
}

// NewTag creates a tag owned by the default owner, changeable by the
// default access group.
func (s *Session) NewTag(ctx context.Context, name, slug string) (Tag, error) {
	algorithm, inbox := 0, false
	var out Tag
	err := s.create(ctx, ObjectTag, name, slug, &algorithm, &inbox, &out)
	return out, err
}

// Correspondents lists every correspondent.
func (s *Session) Correspondents(ctx context.Context, fullPermissions bool) ([]Correspondent, error) {
	return list[Correspondent](ctx, s, ObjectCorrespondent, permsQuery(fullPermissions))
}

// LookupCorrespondent finds a correspondent by name, ignoring case.
func (s *Session) LookupCorrespondent(ctx context.Context, name string) (Correspondent, error) {
	return lookupByName[Correspondent](ctx, s, ObjectCorrespondent, name)
}

// UpdateCorrespondent writes the owner and permissions of c.
func (s *Session) UpdateCorrespondent(ctx context.Context, c Correspondent) error {
	return s.updateOwnership(ctx, ObjectCorrespondent, c.Object)
}

// NewCorrespondent creates a correspondent with the default ownership.
func (s *Session) NewCorrespondent(ctx context.Context, name, slug string) (Correspondent, error) {
	var out Correspondent
	err := s.create(ctx, ObjectCorrespondent, name, slug, nil, nil, &out)
	return out, err
}

// DocumentTypes lists every document type.
func (s *Session) DocumentTypes(ctx context.Context, fullPermissions bool) ([]DocumentType, error) {
	return list[DocumentType](ctx, s, ObjectDocumentType, permsQuery(fullPermissions))
}

// LookupDocumentType finds a document type by name, ignoring case.
func (s *Session) LookupDocumentType(ctx context.Context, name string) (DocumentType, error) {
	return lookupByName[DocumentType](ctx, s, ObjectDocumentType, name)
}

// UpdateDocumentType writes the owner and permissions of dt.
func (s *Session) UpdateDocumentType(ctx context.Context, dt DocumentType) error {
	return s.updateOwnership(ctx, ObjectDocumentType, dt.Object)
}

// NewDocumentType creates a document type with the default ownership.
func (s *Session) NewDocumentType(ctx context.Context, name, slug string) (DocumentType, error) {
	var out DocumentType
	err := s.create(ctx, ObjectDocumentType, name, slug, nil, nil, &out)
	return out, err
}

// StoragePaths lists every storage path.
func (s *Session) StoragePaths(ctx context.Context, fullPermissions bool) ([]StoragePath, error) {
	return list[StoragePath](ctx, s, ObjectStoragePath, permsQuery(fullPermissions))
}

// LookupStoragePath finds a storage path by name, ignoring case.
func (s *Session) LookupStoragePath(ctx context.Context, name string) (StoragePath, error) {
	return lookupByName[StoragePath](ctx, s, ObjectStoragePath, name)
}

// CustomFields lists every custom field definition.
func (s *Session) CustomFields(ctx context.Context) ([]CustomField, error) {
	return list[CustomField](ctx, s, ObjectCustomField, nil)
}

// LookupCustomField finds a custom field by name, ignoring case.
func (s *Session) LookupCustomField(ctx context.Context, name string) (CustomField, error) {
	return lookupByName[CustomField](ctx, s, ObjectCustomField, name)
}

// CachedCustomField is LookupCustomField remembered for the session.
func (s *Session) CachedCustomField(ctx context.Context, name string) (CustomField, error) {
	return s.customFields.GetOrLoad(ctx, name, lookupTTL, func(ctx context.Context) (CustomField, error) {
		return s.LookupCustomField(ctx, name)
	})
}

// NewCustomField creates a custom field definition.
func (s *Session) NewCustomField(ctx context.Context, name, dataType string) (CustomField, error) {
	var out CustomField
	if err := s.sendJSON(ctx, http.MethodPost, ObjectCustomField.endpoint(), newCustomField{Name: name, DataType: dataType}, &out); err != nil {
		return CustomField{}, fmt.Errorf("create custom field %q: %w", name, err)
	}
	s.customFields.Delete(name)
	return out, nil
}

func (s *Session) updateOwnership(ctx context.Context, objType ObjectType, obj Object) error {
	ref := fmt.Sprintf("%s%d/", objType.endpoint(), obj.ID)
	body := ownershipPatch{Owner: obj.Owner, SetPermissions: obj.Permissions}
	if err := s.sendJSON(ctx, http.MethodPatch, ref, body, nil); err != nil {
		return fmt.Errorf("update %s %q: %w", objType.Singular(), obj.Name, err)
	}
	return nil
}

func (s *Session) create(ctx context.Context, objType ObjectType, name, slug string, algorithm *int, inbox *bool, out any) error {
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "paperless.create",
		trace.WithAttributes(telemetry.ObjectAttributes(string(objType), name)...))
	defer span.End()

	owner, err := s.DefaultOwner(ctx)
	if err != nil {
		return err
	}
	perms, err := s.DefaultPermissions(ctx)
	if err != nil {
		return err
	}

	body := newObject{
		Name:              name,
		Slug:              slug,
		MatchingAlgorithm: algorithm,
		IsInboxTag:        inbox,
		Owner:             owner.ID,
		SetPermissions:    perms,
	}
	if err := s.sendJSON(ctx, http.MethodPost, objType.endpoint(), body, out); err != nil {
		return fmt.Errorf("create %s %q: %w", objType.Singular(), name, err)
	}
	return nil
}
