package http

import (
	"net/http"

	"fintrack/internal/core"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.ledger.Budgets.List(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", mapSlice(budgets, newBudgetResponse))
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.ledger.Budgets.Create(r.Context(), req.toCore(userFrom(r.Context())))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "budget created", newBudgetResponse(b))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.ledger.Budgets.Get(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", newBudgetResponse(b))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.ledger.Budgets.Update(r.Context(), userFrom(r.Context()), id, req.toPatch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "budget updated", newBudgetResponse(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, "budget deleted", func(user core.UserID, id int64) error {
		return s.ledger.Budgets.Delete(r.Context(), user, id)
	})
}

// handleRecalculateBudget recomputes current_expense from the transactions.
func (s *Server) handleRecalculateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.ledger.Budgets.Recalculate(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "budget recalculated", newBudgetResponse(b))
}
