package devserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dashql/dashql-go/internal/catalog"
	"github.com/dashql/dashql-go/internal/registry"
)

func newTestServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	s := New(catalog.New(), registry.New())
	ts := httptest.NewServer(s.Routes())
	return ts, ts.Close
}

func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func TestCreateAndAnalyzeScript(t *testing.T) {
	ts, closeFn := newTestServer(t)
	defer closeFn()

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/scripts", "create table t (id int, amount int)")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	id := created["id"]
	if id == "" {
		t.Fatalf("expected a script id")
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/scripts/"+id+"/analyze", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var analyzed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&analyzed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if analyzed.TableCount != 1 {
		t.Fatalf("expected 1 declared table, got %d", analyzed.TableCount)
	}
}

func TestCreateAndCompleteScript(t *testing.T) {
	ts, closeFn := newTestServer(t)
	defer closeFn()

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/scripts", "select a fr")
	var created map[string]string
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	id := created["id"]

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/scripts/"+id+"/complete?offset=11&limit=10", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var candidates []candidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	found := false
	for _, c := range candidates {
		if c.Name == "from" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a FROM candidate, got %+v", candidates)
	}
}

func TestCatalogEndpointReflectsLoadedTable(t *testing.T) {
	ts, closeFn := newTestServer(t)
	defer closeFn()

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/scripts", "create table widgets (id int)")
	var created map[string]string
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	id := created["id"]

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/scripts/"+id+"/analyze", "")
	io.ReadAll(resp.Body)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/catalog", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var cols []flattenedColumn
	if err := json.NewDecoder(resp.Body).Decode(&cols); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	found := false
	for _, c := range cols {
		if c.Table == "widgets" && c.Column == "id" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected widgets.id in flattened catalog, got %+v", cols)
	}
}

func TestCloseScriptRemovesIt(t *testing.T) {
	ts, closeFn := newTestServer(t)
	defer closeFn()

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/scripts", "")
	var created map[string]string
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	id := created["id"]

	resp = doRequest(t, http.MethodDelete, ts.URL+"/api/scripts/"+id, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/scripts/"+id+"/analyze", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after close, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
