package devserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleCreateScript(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	id, sc := s.newScript()
	if len(body) > 0 {
		sc.ReplaceText(string(body))
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleReplaceText(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.lookupScript(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown script id")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	sc.ReplaceText(string(body))
	writeJSON(w, http.StatusOK, map[string]uint64{"text_version": sc.TextVersion()})
}

type editRequest struct {
	// InsertAt/InsertText insert text at a rune offset; EraseAt/EraseCount
	// remove runes. Zero-value InsertText and zero EraseCount mean "no-op"
	// for that half of the request, so a caller can send either or both.
	InsertAt   int    `json:"insert_at"`
	InsertText string `json:"insert_text"`
	EraseAt    int    `json:"erase_at"`
	EraseCount int    `json:"erase_count"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.lookupScript(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown script id")
		return
	}
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.EraseCount > 0 {
		sc.EraseRange(req.EraseAt, req.EraseCount)
	}
	if req.InsertText != "" {
		sc.InsertTextAt(req.InsertAt, req.InsertText)
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"text_version": sc.TextVersion()})
}

// diagnostic mirrors status.Diagnostic for JSON stability (avoids coupling
// the wire shape to the status package's field names/tags).
type diagnostic struct {
	Message string `json:"message"`
	Offset  uint32 `json:"offset"`
	Length  uint32 `json:"length"`
}

type analyzeResponse struct {
	TableCount      int          `json:"table_count"`
	ExpressionCount int          `json:"expression_count"`
	TableRefCount   int          `json:"table_ref_count"`
	Diagnostics     []diagnostic `json:"diagnostics"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.lookupScript(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown script id")
		return
	}
	analyzed, err := sc.Analyze(true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := analyzeResponse{
		TableCount:      len(analyzed.TableDecls),
		ExpressionCount: len(analyzed.Expressions),
		TableRefCount:   len(analyzed.TableRefs),
	}
	for _, d := range analyzed.Errors {
		resp.Diagnostics = append(resp.Diagnostics, diagnostic{
			Message: d.Message,
			Offset:  d.Location.Offset,
			Length:  d.Location.Length,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type candidateResponse struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.lookupScript(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown script id")
		return
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	candidates, err := sc.CompleteAtCursor(uint32(offset), limit, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]candidateResponse, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, candidateResponse{Name: c.Name, Score: c.Score})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCloseScript(w http.ResponseWriter, r *http.Request) {
	s.dropScript(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

type flattenedColumn struct {
	Database string `json:"database"`
	Schema   string `json:"schema"`
	Table    string `json:"table"`
	Column   string `json:"column"`
	Index    int    `json:"index"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if s.cat == nil {
		writeJSON(w, http.StatusOK, []flattenedColumn{})
		return
	}
	cols := s.cat.Flatten()
	out := make([]flattenedColumn, 0, len(cols))
	for _, c := range cols {
		out = append(out, flattenedColumn{
			Database: c.Database, Schema: c.Schema, Table: c.Table, Column: c.Column, Index: c.Index,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
