// SPDX-License-Identifier: MIT

package paperless

import (
	"encoding/json"
	"slices"
)

// ObjectType is the API collection an object lives in.
type ObjectType string

const (
	ObjectUser          ObjectType = "users"
	ObjectGroup         ObjectType = "groups"
	ObjectTag           ObjectType = "tags"
	ObjectCorrespondent ObjectType = "correspondents"
	ObjectDocumentType  ObjectType = "document_types"
	ObjectStoragePath   ObjectType = "storage_paths"
	ObjectCustomField   ObjectType = "custom_fields"
	ObjectDocument      ObjectType = "documents"
)

// endpoint returns the collection path relative to the API root.
func (t ObjectType) endpoint() string { return string(t) + "/" }

// Singular returns a human readable name for messages.
func (t ObjectType) Singular() string {
	switch t {
	case ObjectUser:
		return "user"
	case ObjectGroup:
		return "group"
	case ObjectTag:
		return "tag"
	case ObjectCorrespondent:
		return "correspondent"
	case ObjectDocumentType:
		return "document type"
	case ObjectStoragePath:
		return "storage path"
	case ObjectCustomField:
		return "custom field"
	case ObjectDocument:
		return "document"
	}
	return string(t)
}

// UsersAndGroups lists user and group ids holding a permission.
type UsersAndGroups struct {
	Users  []int `json:"users"`
	Groups []int `json:"groups"`
}

// Permissions are the object-level view/change grants.
type Permissions struct {
	View   UsersAndGroups `json:"view"`
	Change UsersAndGroups `json:"change"`
}

// HasChangeGroup reports whether group id may change the object.
func (p *Permissions) HasChangeGroup(id int) bool {
	return p != nil && slices.Contains(p.Change.Groups, id)
}

// User is a Paperless user account.
type User struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	DateJoined  string `json:"date_joined,omitempty"`
	IsStaff     bool   `json:"is_staff"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
	Groups      []int  `json:"groups,omitempty"`
}

// Group is a Paperless permission group.
type Group struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions,omitempty"`
}

// Object holds the fields shared by tags, correspondents, document types and
// storage paths.
type Object struct {
	ID                int          `json:"id"`
	Slug              string       `json:"slug"`
	Name              string       `json:"name"`
	Match             string       `json:"match"`
	MatchingAlgorithm int          `json:"matching_algorithm"`
	IsInsensitive     bool         `json:"is_insensitive"`
	DocumentCount     int          `json:"document_count"`
	Owner             *int         `json:"owner"`
	UserCanChange     *bool        `json:"user_can_change,omitempty"`
	Permissions       *Permissions `json:"permissions,omitempty"`
}

func (o Object) objectName() string { return o.Name }
func (o Object) objectID() int      { return o.ID }

// Tag is a document tag.
type Tag struct {
	Object
	Color      string `json:"color,omitempty"`
	TextColor  string `json:"text_color,omitempty"`
	IsInboxTag bool   `json:"is_inbox_tag"`
}

// Correspondent is the sender of a document.
type Correspondent struct {
	Object
}

// DocumentType classifies documents.
type DocumentType struct {
	Object
}

// StoragePath decides where Paperless files a document.
type StoragePath struct {
	Object
	Path string `json:"path"`
}

// CustomFieldExtraData carries data-type specific settings.
type CustomFieldExtraData struct {
	SelectOptions   []json.RawMessage `json:"select_options,omitempty"`
	DefaultCurrency *string           `json:"default_currency,omitempty"`
}

// CustomField is a custom field definition.
type CustomField struct {
	ID            int                   `json:"id"`
	Name          string                `json:"name"`
	DataType      string                `json:"data_type"`
	ExtraData     *CustomFieldExtraData `json:"extra_data,omitempty"`
	DocumentCount int                   `json:"document_count"`
}

func (f CustomField) objectName() string { return f.Name }
func (f CustomField) objectID() int      { return f.ID }

// CustomFieldValue is a value attached to a document.
type CustomFieldValue struct {
	Field int `json:"field"`
	Value any `json:"value"`
}

// Document is a Paperless document as returned by the API.
type Document struct {
	ID                  int                `json:"id"`
	Correspondent       *int               `json:"correspondent"`
	DocumentType        *int               `json:"document_type"`
	StoragePath         *int               `json:"storage_path"`
	Title               string             `json:"title"`
	Content             string             `json:"content"`
	Tags                []int              `json:"tags"`
	Created             string             `json:"created"`
	CreatedDate         string             `json:"created_date"`
	Modified            string             `json:"modified"`
	Added               string             `json:"added"`
	DeletedAt           *string            `json:"deleted_at"`
	ArchiveSerialNumber *int               `json:"archive_serial_number"`
	OriginalFileName    *string            `json:"original_file_name"`
	ArchivedFileName    *string            `json:"archived_file_name"`
	Owner               *int               `json:"owner"`
	IsSharedByRequester bool               `json:"is_shared_by_requester"`
	Notes               []json.RawMessage  `json:"notes"`
	PageCount           *int               `json:"page_count"`
	MimeType            string             `json:"mime_type"`
	CustomFields        []CustomFieldValue `json:"custom_fields"`
	UserCanChange       *bool              `json:"user_can_change,omitempty"`
	Permissions         *Permissions       `json:"permissions,omitempty"`
}

// HasTag reports whether the document carries tag id.
func (d *Document) HasTag(id int) bool {
	return slices.Contains(d.Tags, id)
}

// AddTag appends tag id unless it is already present.
func (d *Document) AddTag(id int) bool {
	if d.HasTag(id) {
		return false
	}
	d.Tags = append(d.Tags, id)
	return true
}

// IsPDF reports whether the stored original is a PDF.
func (d *Document) IsPDF() bool {
	return d.MimeType == "application/pdf"
}

// documentPatch is the PATCH body for a document: only fields the
// automation may change are sent.
type documentPatch struct {
	Title          string             `json:"title"`
	CreatedDate    string             `json:"created_date,omitempty"`
	Correspondent  *int               `json:"correspondent"`
	DocumentType   *int               `json:"document_type"`
	StoragePath    *int               `json:"storage_path"`
	Tags           []int              `json:"tags"`
	CustomFields   []CustomFieldValue `json:"custom_fields"`
	Owner          *int               `json:"owner"`
	SetPermissions *Permissions       `json:"set_permissions,omitempty"`
}

func newDocumentPatch(d Document) documentPatch {
	p := documentPatch{
		Title:          d.Title,
		CreatedDate:    d.CreatedDate,
		Correspondent:  d.Correspondent,
		DocumentType:   d.DocumentType,
		StoragePath:    d.StoragePath,
		Tags:           d.Tags,
		CustomFields:   d.CustomFields,
		Owner:          d.Owner,
		SetPermissions: d.Permissions,
	}
	if p.Tags == nil {
		p.Tags = []int{}
	}
	if p.CustomFields == nil {
		p.CustomFields = []CustomFieldValue{}
	}
	return p
}

// ownershipPatch is the PATCH body used to fix owner and permissions of
// tags, correspondents and document types.
type ownershipPatch struct {
	Owner          *int         `json:"owner"`
	SetPermissions *Permissions `json:"set_permissions,omitempty"`
}

// newObject is the POST body for tags, correspondents and document types.
type newObject struct {
	Name              string      `json:"name"`
	Slug              string      `json:"slug"`
	MatchingAlgorithm *int        `json:"matching_algorithm,omitempty"`
	IsInboxTag        *bool       `json:"is_inbox_tag,omitempty"`
	Owner             int         `json:"owner"`
	SetPermissions    Permissions `json:"set_permissions"`
}

type newCustomField struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

// MetadataEntry is one embedded metadata record of a stored file.
type MetadataEntry struct {
	Namespace string `json:"namespace"`
	Prefix    string `json:"prefix"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// DocumentMetadata describes the stored original and archive files.
type DocumentMetadata struct {
	OriginalChecksum     string          `json:"original_checksum"`
	OriginalSize         int64           `json:"original_size"`
	OriginalMimeType     string          `json:"original_mime_type"`
	MediaFilename        string          `json:"media_filename"`
	HasArchiveVersion    bool            `json:"has_archive_version"`
	OriginalMetadata     []MetadataEntry `json:"original_metadata"`
	ArchiveChecksum      *string         `json:"archive_checksum"`
	ArchiveMediaFilename *string         `json:"archive_media_filename"`
	OriginalFilename     string          `json:"original_filename"`
	ArchiveSize          *int64          `json:"archive_size"`
	ArchiveMetadata      []MetadataEntry `json:"archive_metadata"`
	Lang                 string          `json:"lang"`
}

// OriginalProducer returns the PDF Producer of the original file, or "" when
// there is none or more than one.
func (m DocumentMetadata) OriginalProducer() string {
	var producer string
	found := 0
	for _, e := range m.OriginalMetadata {
		if e.Key == "Producer" {
			producer = e.Value
			found++
		}
	}
	if found != 1 {
		return ""
	}
	return producer
}

// page is one page of a paginated list response.
type page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}
