// SPDX-License-Identifier: MIT

package paperless

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
)

// Documents lists every document.
func (s *Session) Documents(ctx context.Context, fullPermissions bool) ([]Document, error) {
	return list[Document](ctx, s, ObjectDocument, permsQuery(fullPermissions))
}

// EachDocument streams documents page by page, stopping at the first error
// returned by fn.
func (s *Session) EachDocument(ctx context.Context, fullPermissions bool, fn func(Document) error) error {
	return each(ctx, s, ObjectDocument, permsQuery(fullPermissions), fn)
}

func documentRef(id int, suffix string) string {
	return fmt.Sprintf("%s%d/%s", ObjectDocument.endpoint(), id, suffix)
}

// Document fetches a single document.
func (s *Session) Document(ctx context.Context, id int) (Document, error) {
	var doc Document
	if err := s.getJSON(ctx, documentRef(id, ""), nil, &doc); err != nil {
		return Document{}, fmt.Errorf("get document %d: %w", id, err)
	}
	return doc, nil
}

// DocumentMetadata fetches file metadata of a document.
func (s *Session) DocumentMetadata(ctx context.Context, id int) (DocumentMetadata, error) {
	var md DocumentMetadata
	if err := s.getJSON(ctx, documentRef(id, "metadata/"), nil, &md); err != nil {
		return DocumentMetadata{}, fmt.Errorf("get metadata of document %d: %w", id, err)
	}
	return md, nil
}

// UpdateDocument PATCHes the mutable fields of doc and returns the server's view.
func (s *Session) UpdateDocument(ctx context.Context, doc Document) (Document, error) {
	var out Document
	if err := s.sendJSON(ctx, http.MethodPatch, documentRef(doc.ID, ""), newDocumentPatch(doc), &out); err != nil {
		return Document{}, fmt.Errorf("update document %d: %w", doc.ID, err)
	}
	return out, nil
}

// Download is a document file being received. Body must be closed.
type Download struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
	Size        int64 // -1 when unknown
}

// DownloadDocument requests the original (or archived) file of a document.
func (s *Session) DownloadDocument(ctx context.Context, id int, original bool) (*Download, error) {
	u, err := s.resolve(documentRef(id, "download/"))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("original", strconv.FormatBool(original))
	u.RawQuery = q.Encode()

	resp, err := s.do(ctx, request{method: http.MethodGet, url: u})
	if err != nil {
		return nil, fmt.Errorf("download document %d: %w", id, err)
	}

	dl := &Download{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		dl.Filename = params["filename"]
	}
	return dl, nil
}
