package testutil

import (
	"io"
	"net/http"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestRemoteRepo(t *testing.T) {
	repo := NewRemoteRepo(t, "o", "r", "main")
	repo.AddFile("data/oesm23st/state.xlsx", []byte("xlsx"))
	repo.AddFile("data/README.md", []byte("readme"))

	status, body := get(t, repo.Server.URL+"/repos/o/r/contents/data?ref=main")
	require.Equal(t, http.StatusOK, status)
	var items []contentItem
	require.NoError(t, json.Unmarshal(body, &items))
	assert.Equal(t, []contentItem{
		{Name: "README.md", Path: "data/README.md", Type: "file"},
		{Name: "oesm23st", Path: "data/oesm23st", Type: "dir"},
	}, items)

	status, body = get(t, repo.Server.URL+"/o/r/main/data/oesm23st/state.xlsx")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "xlsx", string(body))

	status, _ = get(t, repo.Server.URL+"/repos/o/r/contents/missing")
	assert.Equal(t, http.StatusNotFound, status)

	repo.Fail("/README.md", http.StatusBadGateway)
	status, _ = get(t, repo.Server.URL+"/o/r/main/data/README.md")
	assert.Equal(t, http.StatusBadGateway, status)

	assert.Equal(t, 1, repo.Requests("/repos/o/r/contents/data"))
	assert.Equal(t, 4, repo.TotalRequests())
}

func TestWorkbook(t *testing.T) {
	b := Workbook(t, [][]interface{}{{"A", "B"}, {1, nil}})
	assert.Equal(t, []byte("PK\x03\x04"), b[:4])
}
