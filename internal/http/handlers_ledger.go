package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kasa/internal/core"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, _ *http.Request) {
	snap := s.ledger.Snapshot()
	respondJSON(w, http.StatusOK, viewsOf(snap.Transactions, snap.ExpenseTypes))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.ledger.Store().Transaction(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(tx, s.ledger.Snapshot().ExpenseTypes))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := decodeTransaction(w, r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	saved, err := s.ledger.CreateTransaction(r.Context(), tx)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, viewOf(saved, s.ledger.Snapshot().ExpenseTypes))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := decodeTransaction(w, r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	saved, err := s.ledger.UpdateTransaction(r.Context(), chi.URLParam(r, "id"), tx)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(saved, s.ledger.Snapshot().ExpenseTypes))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type expenseTypeRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListExpenseTypes(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.ledger.Snapshot().ExpenseTypes)
}

func (s *Server) handleCreateExpenseType(w http.ResponseWriter, r *http.Request) {
	var req expenseTypeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	et, err := s.ledger.CreateExpenseType(r.Context(), req.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, et)
}

func (s *Server) handleRenameExpenseType(w http.ResponseWriter, r *http.Request) {
	var req expenseTypeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	et, err := s.ledger.RenameExpenseType(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, et)
}

func (s *Server) handleDeleteExpenseType(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteExpenseType(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetExportSettings(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.ledger.Snapshot().Settings)
}

func (s *Server) handlePutExportSettings(w http.ResponseWriter, r *http.Request) {
	var settings core.ExportSettings
	if err := decodeJSON(w, r, &settings); err != nil {
		respondServiceError(w, r, err)
		return
	}
	saved, err := s.ledger.SetExportSettings(r.Context(), settings)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

func (s *Server) handleRunExport(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RequestExport(r.Context()); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
