// SPDX-License-Identifier: MIT

// Package paperlesstest provides an in-memory Paperless-ngx API for tests.
package paperlesstest

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/paperless"
)

// Collections served by the fake.
var collections = []paperless.ObjectType{
	paperless.ObjectUser,
	paperless.ObjectGroup,
	paperless.ObjectTag,
	paperless.ObjectCorrespondent,
	paperless.ObjectDocumentType,
	paperless.ObjectStoragePath,
	paperless.ObjectCustomField,
	paperless.ObjectDocument,
}

// NextHost is the host used in pagination links. Paperless behind a proxy
// advertises its internal address there, so clients must not follow it as is.
const NextHost = "paperless.internal:8000"

// Request is a recorded API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// File is a stored document file.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type failure struct {
	status int
	times  int
}

// Server is a fake Paperless-ngx instance backed by httptest.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	apiVersion string
	pageSize   int
	username   string
	password   string
	token      string
	nextID     int
	objects    map[paperless.ObjectType]map[int]map[string]any
	metadata   map[int]paperless.DocumentMetadata
	originals  map[int]File
	archives   map[int]File
	failures   map[string]*failure
	requests   []Request
}

// NewServer starts a fake serving API version 5 (the client caps it at 4),
// with two results per page.
func NewServer() *Server {
	s := &Server{
		apiVersion: "5",
		pageSize:   2,
		nextID:     100,
		objects:    make(map[paperless.ObjectType]map[int]map[string]any),
		metadata:   make(map[int]paperless.DocumentMetadata),
		originals:  make(map[int]File),
		archives:   make(map[int]File),
		failures:   make(map[string]*failure),
	}
	for _, c := range collections {
		s.objects[c] = make(map[int]map[string]any)
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// SetAPIVersion changes the X-Api-Version header; "" omits it.
func (s *Server) SetAPIVersion(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiVersion = v
}

// SetPageSize changes the number of results per list page.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// RequireBasicAuth rejects requests without these credentials.
func (s *Server) RequireBasicAuth(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username, s.password = username, password
}

// RequireToken rejects requests without this API token.
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// FailNext makes the next times requests to method and path answer status.
func (s *Server) FailNext(method, path string, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = &failure{status: status, times: times}
}

// AddUser seeds a user and returns its id.
func (s *Server) AddUser(username string) int {
	return s.add(paperless.ObjectUser, map[string]any{"username": username, "is_active": true})
}

// AddGroup seeds a group.
func (s *Server) AddGroup(name string) int {
	return s.add(paperless.ObjectGroup, map[string]any{"name": name})
}

// AddObject seeds a tag, correspondent, document type or storage path.
func (s *Server) AddObject(t paperless.ObjectType, name string, owner *int, perms *paperless.Permissions) int {
	obj := map[string]any{
		"name":               name,
		"slug":               strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		"match":              "",
		"matching_algorithm": 1,
		"owner":              owner,
	}
	if perms != nil {
		obj["permissions"] = toMap(perms)
	}
	return s.add(t, obj)
}

// AddCustomField seeds a custom field definition.
func (s *Server) AddCustomField(name, dataType string) int {
	return s.add(paperless.ObjectCustomField, map[string]any{"name": name, "data_type": dataType})
}

// AddDocument seeds a document. A zero ID is assigned.
func (s *Server) AddDocument(doc paperless.Document) int {
	obj := toMap(doc)
	if doc.ID == 0 {
		delete(obj, "id")
		return s.add(paperless.ObjectDocument, obj)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[paperless.ObjectDocument][doc.ID] = obj
	return doc.ID
}

// SetMetadata sets what documents/{id}/metadata/ returns.
func (s *Server) SetMetadata(id int, md paperless.DocumentMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[id] = md
}

// SetFiles sets the original and (optionally) archived file of a document.
func (s *Server) SetFiles(id int, original File, archive *File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.originals[id] = original
	if archive != nil {
		s.archives[id] = *archive
	}
}

// Document returns the stored state of a document.
func (s *Server) Document(id int) (paperless.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[paperless.ObjectDocument][id]
	if !ok {
		return paperless.Document{}, false
	}
	var doc paperless.Document
	fromMap(obj, &doc)
	return doc, true
}

// Object returns the stored object of collection t named name, ignoring case.
func (s *Server) Object(t paperless.ObjectType, name string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, obj := range s.objects[t] {
		if n, _ := obj["name"].(string); strings.EqualFold(n, name) {
			return maps.Clone(obj), true
		}
	}
	return nil, false
}

// Count returns the number of objects in collection t.
func (s *Server) Count(t paperless.ObjectType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects[t])
}

// Requests returns every recorded call.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Writes returns recorded POST and PATCH calls.
func (s *Server) Writes() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == http.MethodPost || r.Method == http.MethodPatch {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) add(t paperless.ObjectType, obj map[string]any) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(t, obj)
}

func (s *Server) addLocked(t paperless.ObjectType, obj map[string]any) int {
	s.nextID++
	obj["id"] = s.nextID
	s.objects[t][s.nextID] = obj
	return s.nextID
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := readBody(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})

	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid username/password."})
		return
	}
	if f := s.failures[r.Method+" "+r.URL.Path]; f != nil && f.times > 0 {
		f.times--
		writeJSON(w, f.status, map[string]string{"detail": "injected failure"})
		return
	}
	if s.apiVersion != "" {
		w.Header().Set("X-Api-Version", s.apiVersion)
	}

	rest, ok := strings.CutPrefix(r.URL.Path, "/api/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if rest == "" {
		writeJSON(w, http.StatusOK, map[string]string{})
		return
	}

	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	objType := paperless.ObjectType(parts[0])
	store, known := s.objects[objType]
	if !known {
		http.NotFound(w, r)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.serveList(w, r, objType)
	case len(parts) == 1 && r.Method == http.MethodPost:
		s.serveCreate(w, objType, body)
	case len(parts) >= 2:
		id, err := strconv.Atoi(parts[1])
		obj, found := store[id]
		if err != nil || !found {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No Document matches the given query."})
			return
		}
		s.serveItem(w, r, objType, id, obj, parts[2:], body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token != "" {
		return r.Header.Get("Authorization") == "Token "+s.token
	}
	if s.username != "" {
		u, p, ok := r.BasicAuth()
		return ok && u == s.username && p == s.password
	}
	return true
}

func (s *Server) serveList(w http.ResponseWriter, r *http.Request, t paperless.ObjectType) {
	q := r.URL.Query()
	fullPerms := q.Get("full_perms") == "true"
	iexact := q.Get("name__iexact")

	ids := slices.Sorted(maps.Keys(s.objects[t]))
	var results []map[string]any
	for _, id := range ids {
		obj := s.objects[t][id]
		if iexact != "" {
			if n, _ := obj["name"].(string); !strings.EqualFold(n, iexact) {
				continue
			}
		}
		results = append(results, view(obj, fullPerms))
	}

	pageNum := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		pageNum = p
	}
	start := min((pageNum-1)*s.pageSize, len(results))
	end := min(start+s.pageSize, len(results))

	resp := map[string]any{
		"count":    len(results),
		"next":     nil,
		"previous": nil,
		"results":  append([]map[string]any{}, results[start:end]...),
	}
	if end < len(results) {
		next := url.URL{Scheme: "http", Host: NextHost, Path: r.URL.Path}
		nq := url.Values{}
		for k, v := range q {
			nq[k] = v
		}
		nq.Set("page", strconv.Itoa(pageNum+1))
		next.RawQuery = nq.Encode()
		resp["next"] = next.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) serveCreate(w http.ResponseWriter, t paperless.ObjectType, body []byte) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	if name, _ := obj["name"].(string); name == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"name": {"This field is required."}})
		return
	}
	if perms, ok := obj["set_permissions"]; ok {
		obj["permissions"] = perms
		delete(obj, "set_permissions")
	}
	obj["document_count"] = 0
	s.addLocked(t, obj)
	writeJSON(w, http.StatusCreated, obj)
}

func (s *Server) serveItem(w http.ResponseWriter, r *http.Request, t paperless.ObjectType, id int, obj map[string]any, sub []string, body []byte) {
	switch {
	case len(sub) == 0 && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, view(obj, true))
	case len(sub) == 0 && r.Method == http.MethodPatch:
		var patch map[string]any
		if err := json.Unmarshal(body, &patch); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		if perms, ok := patch["set_permissions"]; ok {
			patch["permissions"] = perms
			delete(patch, "set_permissions")
		}
		maps.Copy(obj, patch)
		writeJSON(w, http.StatusOK, view(obj, true))
	case t == paperless.ObjectDocument && len(sub) == 1 && sub[0] == "metadata":
		writeJSON(w, http.StatusOK, s.metadata[id])
	case t == paperless.ObjectDocument && len(sub) == 1 && sub[0] == "download":
		files := s.originals
		if r.URL.Query().Get("original") != "true" {
			if _, ok := s.archives[id]; ok {
				files = s.archives
			}
		}
		f, ok := files[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", f.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
		w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
		_, _ = w.Write(f.Data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func view(obj map[string]any, fullPerms bool) map[string]any {
	out := maps.Clone(obj)
	if !fullPerms {
		delete(out, "permissions")
	}
	return out
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func toMap(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return out
}

func fromMap(m map[string]any, out any) {
	b, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		panic(err)
	}
}
