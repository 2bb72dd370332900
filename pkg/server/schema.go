package server

import (
	"fmt"
	"net/http"
)

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.store.NonTx().ListTables(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tables == nil {
		tables = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": tables})
}

func (s *Server) handleDescribeTable(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	cols, err := s.store.NonTx().DescribeTable(r.Context(), table)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(cols) == 0 {
		writeError(w, r, fmt.Errorf("table %q: %w", table, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": cols})
}
