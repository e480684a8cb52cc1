// Package httpapi exposes the five host-facing operations over
// storage and query as a plain net/http handler.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/whiter4bbit/milliseriesdb/csvfmt"
	"github.com/whiter4bbit/milliseriesdb/query"
	"github.com/whiter4bbit/milliseriesdb/storage"
)

// Server wires storage's SeriesTable into HTTP handlers.
type Server struct {
	table *storage.SeriesTable
}

// NewServer builds a Server over an already-open SeriesTable.
func NewServer(table *storage.SeriesTable) *Server {
	return &Server{table: table}
}

// Handler builds the http.Handler for all five operations, routed
// with the standard library's Go 1.22+ method+pattern ServeMux — the
// minimal, dependency-free router shape for a service this size.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /series/{name}", s.handleCreate)
	mux.HandleFunc("POST /series/{name}", s.handleAppend)
	mux.HandleFunc("GET /series/{name}", s.handleQuery)
	mux.HandleFunc("GET /series/{name}/export", s.handleExport)
	mux.HandleFunc("POST /series/{name}/restore", s.handleRestore)
	return mux
}

// handleCreate implements PUT /series/{name} -> 201 / 500.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.table.Create(name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type appendEntry struct {
	Ts    int64   `json:"ts"`
	Value float64 `json:"value"`
}

type appendRequest struct {
	Entries []appendEntry `json:"entries"`
}

// handleAppend implements POST /series/{name} -> 200 / 404 / 400.
func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	writer, err := s.table.Writer(name)
	if err != nil {
		writeError(w, err)
		return
	}

	var req appendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	entries := make([]storage.Entry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = storage.Entry{Ts: e.Ts, Value: e.Value}
	}

	if err := writer.Append(entries); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type queryRow struct {
	Timestamp string    `json:"timestamp"`
	Values    []float64 `json:"values"`
}

type queryResponse struct {
	Rows []queryRow `json:"rows"`
}

// handleQuery implements
// GET /series/{name}?from=&group_by=&aggregators=&limit= -> 200/400/404/500.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	reader, err := s.table.Reader(name)
	if err != nil {
		writeError(w, err)
		return
	}

	expr := query.StatementExpr{
		From:        r.URL.Query().Get("from"),
		GroupBy:     r.URL.Query().Get("group_by"),
		Aggregators: r.URL.Query().Get("aggregators"),
		Limit:       r.URL.Query().Get("limit"),
	}
	stmt, err := expr.Parse()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := query.Execute(reader, stmt)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := queryResponse{Rows: make([]queryRow, len(rows))}
	for i, row := range rows {
		values := make([]float64, len(row.Values))
		for j, v := range row.Values {
			values[j] = v.Value
		}
		resp.Rows[i] = queryRow{
			Timestamp: time.UnixMilli(row.Ts).UTC().Format(time.RFC3339),
			Values:    values,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleExport implements GET /series/{name}/export -> streamed
// text/csv.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	reader, err := s.table.Reader(name)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	if err := csvfmt.WriteAll(w, reader.Iterator(0)); err != nil {
		// Headers are already flushed by the time a mid-stream error
		// surfaces; nothing more can be done than truncating the body.
		return
	}
}

// handleRestore implements POST /series/{name}/restore with a CSV
// body -> 200 / 409 / 500, via write-to-temp then atomic-rename.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	tmpName, err := s.table.CreateTemp()
	if err != nil {
		writeError(w, err)
		return
	}
	tmpWriter, err := s.table.Writer(tmpName)
	if err != nil {
		writeError(w, err)
		return
	}

	cr := csvfmt.NewChunkedReader(r.Body, csvfmt.DefaultChunkSize)
	for chunk, err := range cr.Chunks() {
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid csv body: %v", err), http.StatusBadRequest)
			return
		}
		if err := tmpWriter.Append(chunk); err != nil {
			writeError(w, err)
			return
		}
	}

	ok, err := s.table.Rename(tmpName, name)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "restore target already exists", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// writeError maps storage's sentinel error kinds onto HTTP status
// codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, storage.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
