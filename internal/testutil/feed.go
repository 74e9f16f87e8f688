package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FeedServer is an in-process stand-in for the system-of-record feed.
//
// Years maps an academic year to the raw JSON body served for it; Records
// maps an external id to the raw JSON body of the single-record endpoint.
// Status, when non-zero, overrides every response code.
type FeedServer struct {
	*httptest.Server

	mu       sync.Mutex
	years    map[string]string
	records  map[string]string
	status   int
	requests []*http.Request
}

// NewFeedServer starts a feed server that is closed on test cleanup.
func NewFeedServer(t *testing.T) *FeedServer {
	t.Helper()
	fs := &FeedServer{
		years:   map[string]string{},
		records: map[string]string{},
	}
	fs.Server = httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(fs.Close)
	return fs
}

// SetYear serves body for ?academic_year=year.
func (fs *FeedServer) SetYear(year, body string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.years[year] = body
}

// SetYearRecords serves records (marshalled to JSON) for year.
func (fs *FeedServer) SetYearRecords(t *testing.T, year string, records ...map[string]any) {
	t.Helper()
	if records == nil {
		records = []map[string]any{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("marshal feed records: %v", err)
	}
	fs.SetYear(year, string(b))
}

// SetRecord serves body for /<id>.
func (fs *FeedServer) SetRecord(id, body string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.records[id] = body
}

// SetStatus forces every response to code (0 restores normal behaviour).
func (fs *FeedServer) SetStatus(code int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.status = code
}

// Requests returns the requests received so far.
func (fs *FeedServer) Requests() []*http.Request {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]*http.Request(nil), fs.requests...)
}

func (fs *FeedServer) serve(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	fs.requests = append(fs.requests, r.Clone(r.Context()))
	status := fs.status
	var body string
	var found bool
	if id := strings.TrimPrefix(r.URL.Path, "/"); id != "" {
		body, found = fs.records[id]
	} else {
		body, found = fs.years[r.URL.Query().Get("academic_year")]
	}
	fs.mu.Unlock()

	switch {
	case status != 0:
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"forced"}`))
	case !found:
		http.NotFound(w, r)
	default:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}
