// Package testutil provides a fake NetBox server for tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/netbox-inventory/pkg/record"
)

// MockFailure describes an injected error response.
type MockFailure struct {
	StatusCode int
	Body       string
	Headers    map[string]string

	// Times limits how often the failure fires; 0 means always.
	Times int
}

type failureRule struct {
	path    string
	filter  url.Values
	failure MockFailure
	fired   int
}

// MockNetBox is an httptest server that serves collections with NetBox's
// limit/offset pagination and absolute "next" URLs.
type MockNetBox struct {
	server *httptest.Server
	mu     sync.RWMutex

	collections map[string][]*record.Record
	handlers    map[string]func(w http.ResponseWriter, r *http.Request)
	failures    []*failureRule
	delay       func(r *http.Request) time.Duration

	// PageSize caps the records per page regardless of the requested limit.
	pageSize int

	// Token, when set, is required as "Authorization: Token <token>".
	token string

	requests []string
}

// NewMockNetBox creates and starts a mock NetBox server.
func NewMockNetBox() *MockNetBox {
	mock := &MockNetBox{
		collections: make(map[string][]*record.Record),
		handlers:    make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

// URL returns the mock server URL (without /api).
func (m *MockNetBox) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockNetBox) Close() {
	m.server.Close()
}

// Reset clears the request log and the firing counts of failures.
func (m *MockNetBox) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	for _, f := range m.failures {
		f.fired = 0
	}
}

// RequireToken makes the server answer 401/403 unless the token matches.
func (m *MockNetBox) RequireToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// SetPageSize caps the number of records per page.
func (m *MockNetBox) SetPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSize = n
}

// SetDelay installs a per-request latency function.
func (m *MockNetBox) SetDelay(fn func(r *http.Request) time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = fn
}

// SetHandler overrides the response for an exact API path such as
// "/api/status/".
func (m *MockNetBox) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[apiPath(path)] = handler
}

// AddRecords appends raw JSON objects to the collection at path, e.g.
// AddRecords("dcim/sites/", `{"id":1,"name":"PAR1"}`).
func (m *MockNetBox) AddRecords(path string, objects ...string) {
	recs := make([]*record.Record, 0, len(objects))
	for _, obj := range objects {
		recs = append(recs, record.MustDecodeRecord(obj))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := apiPath(path)
	m.collections[p] = append(m.collections[p], recs...)
}

// AddGenerated appends n records built by gen(i) for i in [1, n].
func (m *MockNetBox) AddGenerated(path string, n int, gen func(i int) string) {
	objects := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		objects = append(objects, gen(i))
	}
	m.AddRecords(path, objects...)
}

// FailWhen injects a failure for requests to path whose query carries every
// key/value pair of filter (nil matches all requests to path).
func (m *MockNetBox) FailWhen(path string, filter url.Values, failure MockFailure) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, &failureRule{path: apiPath(path), filter: filter, failure: failure})
}

// RequestCount returns the number of requests received.
func (m *MockNetBox) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// PathRequestCount returns the number of requests to an API path.
func (m *MockNetBox) PathRequestCount(path string) int {
	p := apiPath(path)
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.requests {
		if r == p || strings.HasPrefix(r, p+"?") {
			n++
		}
	}
	return n
}

// Requests returns the received request URIs in arrival order.
func (m *MockNetBox) Requests() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.requests...)
}

func (m *MockNetBox) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, r.URL.RequestURI())
	delay := m.delay
	token := m.token
	m.mu.Unlock()

	if delay != nil {
		if d := delay(r); d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}
	}

	if token != "" {
		auth := r.Header.Get("Authorization")
		switch {
		case auth == "":
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Authentication credentials were not provided."}`)
			return
		case auth != "Token "+token:
			writeJSON(w, http.StatusForbidden, `{"detail":"Invalid token"}`)
			return
		}
	}

	if f := m.matchFailure(r); f != nil {
		for k, v := range f.Headers {
			w.Header().Set(k, v)
		}
		writeJSON(w, f.StatusCode, f.Body)
		return
	}

	m.mu.RLock()
	handler, exists := m.handlers[r.URL.Path]
	m.mu.RUnlock()
	if exists {
		handler(w, r)
		return
	}

	if r.URL.Path == "/api/status/" {
		writeJSON(w, http.StatusOK, `{"django-version":"5.0.9","installed-apps":{},"netbox-version":"4.1.3","plugins":{},"python-version":"3.12.3","rq-workers-running":1}`)
		return
	}

	if rec, ok, found := m.lookupByID(r.URL.Path); found {
		if !ok {
			writeJSON(w, http.StatusNotFound, `{"detail":"Not found."}`)
			return
		}
		data, _ := rec.MarshalJSON()
		writeJSON(w, http.StatusOK, string(data))
		return
	}

	m.mu.RLock()
	recs, exists := m.collections[r.URL.Path]
	pageSize := m.pageSize
	m.mu.RUnlock()
	if !exists {
		writeJSON(w, http.StatusNotFound, `{"detail":"Not found."}`)
		return
	}

	m.servePage(w, r, filterRecords(recs, r.URL.Query()), pageSize)
}

func (m *MockNetBox) servePage(w http.ResponseWriter, r *http.Request, recs []*record.Record, pageSize int) {
	q := r.URL.Query()
	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if pageSize > 0 && limit > pageSize {
		limit = pageSize
	}
	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	end := offset + limit
	if offset > len(recs) {
		offset = len(recs)
	}
	if end > len(recs) {
		end = len(recs)
	}

	next := "null"
	if end < len(recs) {
		nq := cloneQuery(q)
		nq.Set("limit", strconv.Itoa(limit))
		nq.Set("offset", strconv.Itoa(end))
		next = strconv.Quote(m.server.URL + r.URL.Path + "?" + nq.Encode())
	}
	previous := "null"
	if offset > 0 {
		pq := cloneQuery(q)
		pq.Set("limit", strconv.Itoa(limit))
		pq.Set("offset", strconv.Itoa(max(0, offset-limit)))
		previous = strconv.Quote(m.server.URL + r.URL.Path + "?" + pq.Encode())
	}

	var b strings.Builder
	fmt.Fprintf(&b, `{"count":%d,"next":%s,"previous":%s,"results":[`, len(recs), next, previous)
	for i, rec := range recs[offset:end] {
		if i > 0 {
			b.WriteByte(',')
		}
		data, _ := rec.MarshalJSON()
		b.Write(data)
	}
	b.WriteString("]}")
	writeJSON(w, http.StatusOK, b.String())
}

// lookupByID serves "/api/<collection>/<id>/". found reports that the path
// has that shape and the collection exists.
func (m *MockNetBox) lookupByID(path string) (rec *record.Record, ok bool, found bool) {
	trimmed := strings.TrimSuffix(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return nil, false, false
	}
	id := trimmed[idx+1:]
	if _, err := strconv.Atoi(id); err != nil {
		return nil, false, false
	}
	m.mu.RLock()
	recs, exists := m.collections[trimmed[:idx+1]]
	m.mu.RUnlock()
	if !exists {
		return nil, false, false
	}
	for _, r := range recs {
		if rid, _ := r.ID(); rid == id {
			return r, true, true
		}
	}
	return nil, false, true
}

func (m *MockNetBox) matchFailure(r *http.Request) *MockFailure {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := r.URL.Query()
	for _, rule := range m.failures {
		if rule.path != r.URL.Path {
			continue
		}
		if rule.failure.Times > 0 && rule.fired >= rule.failure.Times {
			continue
		}
		matched := true
		for k := range rule.filter {
			if q.Get(k) != rule.filter.Get(k) {
				matched = false
				break
			}
		}
		if matched {
			rule.fired++
			f := rule.failure
			return &f
		}
	}
	return nil
}

// filterAliases maps NetBox filters to the record field they test.
var filterAliases = map[string]string{
	"interface_id": "assigned_object_id",
	"connected":    "connected_endpoints_reachable",
}

var reservedParams = map[string]bool{
	"limit": true, "offset": true, "brief": true, "ordering": true, "cursor": true,
}

// filterRecords applies NetBox-style filters: "q" is a case-insensitive
// substring match on name/display, "<field>_id" matches a nested record's
// id, and any other key matches a scalar field or a nested record's
// id/value/slug/name.
func filterRecords(recs []*record.Record, q url.Values) []*record.Record {
	keys := make([]string, 0, len(q))
	for k := range q {
		if !reservedParams[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return recs
	}
	sort.Strings(keys)

	out := make([]*record.Record, 0, len(recs))
	for _, rec := range recs {
		keep := true
		for _, k := range keys {
			if !matches(rec, k, q[k]) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, rec)
		}
	}
	return out
}

func matches(rec *record.Record, key string, want []string) bool {
	if key == "q" {
		needle := strings.ToLower(want[0])
		for _, f := range []string{"name", "display", "cid", "address", "prefix", "label"} {
			if strings.Contains(strings.ToLower(rec.Str(f)), needle) {
				return true
			}
		}
		return false
	}

	if alias, ok := filterAliases[key]; ok {
		key = alias
	}
	field, sub := key, []string{"id", "value", "slug", "name"}
	if strings.HasSuffix(key, "_id") && key != "_id" {
		if _, direct := rec.Get(key); !direct {
			field, sub = strings.TrimSuffix(key, "_id"), []string{"id"}
		}
	}
	v, ok := rec.Get(field)
	if !ok {
		return false
	}
	for _, candidate := range valueKeys(v, sub) {
		for _, w := range want {
			if strings.EqualFold(candidate, w) {
				return true
			}
		}
	}
	return false
}

func valueKeys(v record.Value, sub []string) []string {
	switch v.Kind() {
	case record.KindRecord:
		var out []string
		for _, s := range sub {
			if f, ok := v.Record().Get(s); ok && f.IsScalar() && !f.IsNull() {
				out = append(out, f.Text())
			}
		}
		return out
	case record.KindList:
		var out []string
		for _, item := range v.List() {
			out = append(out, valueKeys(item, sub)...)
		}
		return out
	case record.KindNull:
		return []string{"null"}
	default:
		return []string{v.Text()}
	}
}

func apiPath(path string) string {
	p := "/" + strings.Trim(path, "/") + "/"
	if !strings.HasPrefix(p, "/api/") {
		p = "/api" + p
	}
	return p
}

func cloneQuery(q url.Values) url.Values {
	cp := make(url.Values, len(q))
	for k, v := range q {
		cp[k] = append([]string(nil), v...)
	}
	return cp
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != "" {
		w.Write([]byte(body))
	}
}
