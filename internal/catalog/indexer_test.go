package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wagebrowser/internal/cache"
	"wagebrowser/internal/config"
	"wagebrowser/internal/remote"
	"wagebrowser/pkg/contracts/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fakeLister serves canned listings and counts calls per path
type fakeLister struct {
	mu       sync.Mutex
	listings map[string][]domain.DirectoryEntry
	failures map[string]error
	calls    map[string]int
	delay    time.Duration
}

func newFakeLister() *fakeLister {
	return &fakeLister{
		listings: make(map[string][]domain.DirectoryEntry),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeLister) ListDirectory(_ context.Context, path string) ([]domain.DirectoryEntry, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[path]++
	if err, ok := f.failures[path]; ok {
		return nil, err
	}
	entries, ok := f.listings[path]
	if !ok {
		return nil, &remote.ListError{Path: path, StatusCode: http.StatusNotFound, Err: remote.ErrUnexpectedStatus}
	}
	return entries, nil
}

func (f *fakeLister) callsFor(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func dir(parent, name string) domain.DirectoryEntry {
	return domain.DirectoryEntry{Name: name, Path: joinPath(parent, name), Type: domain.EntryTypeDir}
}

func file(parent, name string) domain.DirectoryEntry {
	return domain.DirectoryEntry{Name: name, Path: joinPath(parent, name), Type: domain.EntryTypeFile}
}

func newTestIndexer(lister Lister) *Indexer {
	return NewIndexer(lister, cache.NewMemory[string, []domain.DirectoryEntry](), discardLogger())
}

func TestIndexer_Build(t *testing.T) {
	lister := newFakeLister()
	lister.listings["data"] = []domain.DirectoryEntry{
		dir("data", "oesm23st"),
		dir("data", "oesm1999st"),
		dir("data", "archive"),
		file("data", "oesm22st"),
		file("data", "README.md"),
	}
	lister.listings["data/oesm23st"] = []domain.DirectoryEntry{
		file("data/oesm23st", "state_M2023_dl.xlsx"),
		file("data/oesm23st", "State_B.XLS"),
		file("data/oesm23st", "state_M2023_dl.csv"),
		file("data/oesm23st", "field_descriptions.xlsx"),
		dir("data/oesm23st", "state_nested.xlsx"),
	}
	lister.listings["data/oesm1999st"] = []domain.DirectoryEntry{
		file("data/oesm1999st", "state_1999_dl.xls"),
	}

	result, err := newTestIndexer(lister).Build(context.Background(), "data")
	require.NoError(t, err)
	assert.NoError(t, result.Partial)

	want := domain.YearIndex{
		1999: {{Name: "state_1999_dl.xls", Path: "data/oesm1999st/state_1999_dl.xls"}},
		2023: {
			{Name: "State_B.XLS", Path: "data/oesm23st/State_B.XLS"},
			{Name: "state_M2023_dl.xlsx", Path: "data/oesm23st/state_M2023_dl.xlsx"},
		},
	}
	if diff := cmp.Diff(want, result.Years); diff != "" {
		t.Errorf("year index mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{1999, 2023}, result.Years.Years())
	assert.Zero(t, lister.callsFor("data/archive"), "non-matching folders are never listed")
}

func TestIndexer_Build_EmptyYearOmitted(t *testing.T) {
	lister := newFakeLister()
	lister.listings[""] = []domain.DirectoryEntry{dir("", "oesm21st"), dir("", "oesm22st")}
	lister.listings["oesm21st"] = []domain.DirectoryEntry{file("oesm21st", "state_M2021_dl.csv")}
	lister.listings["oesm22st"] = []domain.DirectoryEntry{file("oesm22st", "state_M2022_dl.xlsx")}

	index, err := newTestIndexer(lister).BuildYearIndex(context.Background(), "")
	require.NoError(t, err)

	_, ok := index[2021]
	assert.False(t, ok, "a year without matching files is absent")
	assert.Equal(t, []int{2022}, index.Years())
	for year, files := range index {
		assert.NotEmpty(t, files, "year %d", year)
	}
}

func TestIndexer_Build_SubfolderFailureAbsorbed(t *testing.T) {
	lister := newFakeLister()
	lister.listings[""] = []domain.DirectoryEntry{dir("", "oesm22st"), dir("", "oesm23st")}
	lister.listings["oesm22st"] = []domain.DirectoryEntry{file("oesm22st", "state_M2022_dl.xlsx")}
	lister.failures["oesm23st"] = &remote.ListError{Path: "oesm23st", Err: errors.New("connection reset")}

	result, err := newTestIndexer(lister).Build(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []int{2022}, result.Years.Years())
	require.Error(t, result.Partial)
	var listErr *remote.ListError
	assert.True(t, errors.As(result.Partial, &listErr))
	assert.Contains(t, result.Partial.Error(), "year 2023")
}

func TestIndexer_Build_BaseFailureAborts(t *testing.T) {
	lister := newFakeLister()
	lister.failures[""] = &remote.ListError{Path: "", StatusCode: http.StatusForbidden, Err: remote.ErrUnexpectedStatus}

	result, err := newTestIndexer(lister).Build(context.Background(), "")
	assert.Nil(t, result)
	var listErr *remote.ListError
	require.True(t, errors.As(err, &listErr))
	assert.Equal(t, http.StatusForbidden, listErr.StatusCode)
}

func TestIndexer_Build_DuplicateYearFirstWins(t *testing.T) {
	lister := newFakeLister()
	lister.listings[""] = []domain.DirectoryEntry{dir("", "oesm2023st"), dir("", "oesm23st")}
	lister.listings["oesm2023st"] = []domain.DirectoryEntry{file("oesm2023st", "state_a.xlsx")}
	lister.listings["oesm23st"] = []domain.DirectoryEntry{file("oesm23st", "state_b.xlsx")}

	index, err := newTestIndexer(lister).BuildYearIndex(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []domain.FileDescriptor{{Name: "state_a.xlsx", Path: "oesm2023st/state_a.xlsx"}}, index[2023])
	assert.Zero(t, lister.callsFor("oesm23st"))
}

func TestIndexer_Build_DuplicateYearFallsThrough(t *testing.T) {
	tests := []struct {
		name  string
		setup func(l *fakeLister)
	}{
		{
			name: "first folder fails",
			setup: func(l *fakeLister) {
				l.failures["oesm2023st"] = &remote.ListError{Path: "oesm2023st", Err: errors.New("connection reset")}
			},
		},
		{
			name: "first folder has no data files",
			setup: func(l *fakeLister) {
				l.listings["oesm2023st"] = []domain.DirectoryEntry{file("oesm2023st", "readme.txt")}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := newFakeLister()
			lister.listings[""] = []domain.DirectoryEntry{dir("", "oesm2023st"), dir("", "oesm23st"), dir("", "OESM23ST")}
			lister.listings["oesm23st"] = []domain.DirectoryEntry{file("oesm23st", "state_b.xlsx")}
			lister.listings["OESM23ST"] = []domain.DirectoryEntry{file("OESM23ST", "state_c.xlsx")}
			tt.setup(lister)

			result, err := newTestIndexer(lister).Build(context.Background(), "")
			require.NoError(t, err)

			assert.Equal(t, []domain.FileDescriptor{{Name: "state_b.xlsx", Path: "oesm23st/state_b.xlsx"}}, result.Years[2023])
			assert.NoError(t, result.Partial, "the year was supplied by a later folder")
			assert.Equal(t, 1, lister.callsFor("oesm2023st"))
			assert.Zero(t, lister.callsFor("OESM23ST"))
		})
	}
}

func TestIndexer_Build_Idempotent(t *testing.T) {
	lister := newFakeLister()
	lister.listings[""] = []domain.DirectoryEntry{dir("", "oesm22st"), dir("", "oesm23st")}
	lister.listings["oesm22st"] = []domain.DirectoryEntry{file("oesm22st", "state_M2022_dl.xlsx")}
	lister.listings["oesm23st"] = []domain.DirectoryEntry{file("oesm23st", "state_M2023_dl.xlsx")}

	ix := newTestIndexer(lister)
	first, err := ix.BuildYearIndex(context.Background(), "")
	require.NoError(t, err)
	second, err := ix.BuildYearIndex(context.Background(), "")
	require.NoError(t, err)

	assert.True(t, cmp.Equal(first, second))
	// the second build is served from the cache
	assert.Equal(t, 1, lister.callsFor(""))
	assert.Equal(t, 1, lister.callsFor("oesm22st"))
	assert.Equal(t, 1, lister.callsFor("oesm23st"))

	// a fresh cache against the same remote yields an equal index
	third, err := newTestIndexer(lister).BuildYearIndex(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, cmp.Equal(first, third))
}

func TestIndexer_ListDirectory_FailuresNotCached(t *testing.T) {
	lister := newFakeLister()
	lister.failures["base"] = errors.New("timeout")
	ix := newTestIndexer(lister)

	_, err := ix.ListDirectory(context.Background(), "base")
	require.Error(t, err)

	lister.mu.Lock()
	delete(lister.failures, "base")
	lister.listings["base"] = []domain.DirectoryEntry{dir("base", "oesm23st")}
	lister.mu.Unlock()

	entries, err := ix.ListDirectory(context.Background(), "/base/")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 2, lister.callsFor("base"))
}

func TestIndexer_ListDirectory_ConcurrentCallsShareRequest(t *testing.T) {
	lister := newFakeLister()
	lister.delay = 50 * time.Millisecond
	lister.listings["base"] = []domain.DirectoryEntry{dir("base", "oesm23st")}
	ix := newTestIndexer(lister)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entries, err := ix.ListDirectory(context.Background(), "base")
			assert.NoError(t, err)
			assert.Len(t, entries, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, lister.callsFor("base"))
}

// TestIndexer_EndToEnd runs the indexer against a stub contents API through
// the real remote client.
func TestIndexer_EndToEnd(t *testing.T) {
	var requests atomic.Int32
	listings := map[string]string{
		"/repos/o/r/contents": `[
			{"name": "oesm22st", "path": "oesm22st", "type": "dir"},
			{"name": "oesm23st", "path": "oesm23st", "type": "dir"},
			{"name": "app.py", "path": "app.py", "type": "file"}
		]`,
		"/repos/o/r/contents/oesm22st": `[
			{"name": "state_M2022_dl.xlsx", "path": "oesm22st/state_M2022_dl.xlsx", "type": "file"}
		]`,
		"/repos/o/r/contents/oesm23st": `[
			{"name": "state_M2023_dl.xlsx", "path": "oesm23st/state_M2023_dl.xlsx", "type": "file"},
			{"name": "notes.txt", "path": "oesm23st/notes.txt", "type": "file"}
		]`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		body, ok := listings[strings.TrimSuffix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	cfg := config.Default().Remote
	cfg.APIHost = server.URL
	cfg.RawHost = server.URL
	cfg.Owner = "o"
	cfg.Repo = "r"
	cfg.RequestsPerSecond = 0

	ix := newTestIndexer(remote.NewClient(cfg, discardLogger()))
	index, err := ix.BuildYearIndex(context.Background(), "")
	require.NoError(t, err)

	want := domain.YearIndex{
		2022: {{Name: "state_M2022_dl.xlsx", Path: "oesm22st/state_M2022_dl.xlsx"}},
		2023: {{Name: "state_M2023_dl.xlsx", Path: "oesm23st/state_M2023_dl.xlsx"}},
	}
	if diff := cmp.Diff(want, index); diff != "" {
		t.Errorf("year index mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int32(3), requests.Load())

	_, err = ix.BuildYearIndex(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int32(3), requests.Load(), "second build makes no network requests")
}
