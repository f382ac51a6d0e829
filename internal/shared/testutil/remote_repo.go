package testutil

import (
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"

	"wagebrowser/internal/config"
)

type contentItem struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

// RemoteRepo serves an in-memory file tree the way the repository contents
// API and the raw host do. Directory listings are derived from the added
// files; every request is counted per URL path.
type RemoteRepo struct {
	Server *httptest.Server

	owner, repo, branch string

	mu       sync.Mutex
	files    map[string][]byte
	failures map[string]int
	requests map[string]int
}

// NewRemoteRepo starts a stub server that is closed when the test ends
func NewRemoteRepo(t *testing.T, owner, repo, branch string) *RemoteRepo {
	t.Helper()
	r := &RemoteRepo{
		owner:    owner,
		repo:     repo,
		branch:   branch,
		files:    make(map[string][]byte),
		failures: make(map[string]int),
		requests: make(map[string]int),
	}
	r.Server = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.Server.Close)
	return r
}

// RemoteConfig returns a client configuration pointing both hosts at the
// stub with the outbound limiter disabled.
func (r *RemoteRepo) RemoteConfig() config.RemoteConfig {
	cfg := config.Default().Remote
	cfg.APIHost = r.Server.URL
	cfg.RawHost = r.Server.URL
	cfg.Owner = r.owner
	cfg.Repo = r.repo
	cfg.Branch = r.branch
	cfg.RequestsPerSecond = 0
	return cfg
}

// AddFile stores data at the slash separated repository path
func (r *RemoteRepo) AddFile(p string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[strings.Trim(p, "/")] = data
}

// Fail makes every request whose URL path ends in suffix answer status
func (r *RemoteRepo) Fail(suffix string, status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[suffix] = status
}

// Requests returns how often the URL path was requested
func (r *RemoteRepo) Requests(urlPath string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[urlPath]
}

// TotalRequests returns the number of requests served
func (r *RemoteRepo) TotalRequests() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.requests {
		total += n
	}
	return total
}

func (r *RemoteRepo) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	urlPath := strings.TrimSuffix(req.URL.Path, "/")
	r.requests[urlPath]++

	for suffix, status := range r.failures {
		if strings.HasSuffix(urlPath, suffix) {
			w.WriteHeader(status)
			return
		}
	}

	contents := "/repos/" + r.owner + "/" + r.repo + "/contents"
	raw := "/" + r.owner + "/" + r.repo + "/" + r.branch + "/"

	switch {
	case urlPath == contents || strings.HasPrefix(urlPath, contents+"/"):
		r.serveListing(w, strings.Trim(strings.TrimPrefix(urlPath, contents), "/"))
	case strings.HasPrefix(urlPath, raw):
		data, ok := r.files[strings.TrimPrefix(urlPath, raw)]
		if !ok {
			http.NotFound(w, req)
			return
		}
		if req.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		_, _ = w.Write(data)
	default:
		http.NotFound(w, req)
	}
}

func (r *RemoteRepo) serveListing(w http.ResponseWriter, dir string) {
	seen := make(map[string]contentItem)
	for p := range r.files {
		rel := p
		if dir != "" {
			if !strings.HasPrefix(p, dir+"/") {
				continue
			}
			rel = strings.TrimPrefix(p, dir+"/")
		}
		name, rest, nested := strings.Cut(rel, "/")
		item := contentItem{Name: name, Path: path.Join(dir, name), Type: "file"}
		if nested && rest != "" {
			item.Type = "dir"
		}
		seen[name] = item
	}
	if len(seen) == 0 && dir != "" {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		return
	}

	items := make([]contentItem, 0, len(seen))
	for _, item := range seen {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

// Workbook builds an xlsx file whose first sheet holds rows. nil values
// leave the cell empty.
func Workbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatalf("set %s: %v", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}
