package http

import (
	"net/http"

	"fintrack/internal/core"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.Catalog.ListAccounts(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", mapSlice(accounts, newAccountResponse))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	acc, err := s.ledger.Catalog.CreateAccount(r.Context(), req.toCore(userFrom(r.Context())))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "account created", newAccountResponse(acc))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	acc, err := s.ledger.Catalog.GetAccount(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", newAccountResponse(acc))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	acc, err := s.ledger.Catalog.UpdateAccount(r.Context(), userFrom(r.Context()), id, req.toPatch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "account updated", newAccountResponse(acc))
}

// handleDeleteAccount removes the account together with its transactions.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, "account deleted", func(user core.UserID, id int64) error {
		return s.ledger.Catalog.DeleteAccount(r.Context(), user, id)
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.ledger.Catalog.ListCategories(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", mapSlice(categories, newCategoryResponse))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cat, err := s.ledger.Catalog.CreateCategory(r.Context(), req.toCore(userFrom(r.Context())))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "category created", newCategoryResponse(cat))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cat, err := s.ledger.Catalog.GetCategory(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", newCategoryResponse(cat))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cat, err := s.ledger.Catalog.UpdateCategory(r.Context(), userFrom(r.Context()), id, req.toPatch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "category updated", newCategoryResponse(cat))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, "category deleted", func(user core.UserID, id int64) error {
		return s.ledger.Catalog.DeleteCategory(r.Context(), user, id)
	})
}

// deleteByID parses {id}, runs del and answers with an empty envelope.
func (s *Server) deleteByID(w http.ResponseWriter, r *http.Request, message string, del func(core.UserID, int64) error) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := del(userFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, message, map[string]int64{"id": id})
}
