package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// handleListTransactions supports account_id, category_id, kind, from, to,
// limit and offset query parameters.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	filter := services.TransactionFilter{
		AccountID:  q.ID("account_id"),
		CategoryID: q.ID("category_id"),
		Kind:       q.Kind("kind"),
		From:       q.Date("from"),
		To:         q.Date("to"),
		Limit:      q.Int("limit", 0),
		Offset:     q.Int("offset", 0),
	}
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := s.ledger.Transactions.List(r.Context(), userFrom(r.Context()), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", mapSlice(txs, newTransactionResponse))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.ledger.Transactions.Create(r.Context(), req.toCore(userFrom(r.Context())))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "transaction created", newTransactionResponse(tx))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.ledger.Transactions.Get(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", newTransactionResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.ledger.Transactions.Update(r.Context(), userFrom(r.Context()), id, req.toPatch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "transaction updated", newTransactionResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, "transaction deleted", func(user core.UserID, id int64) error {
		return s.ledger.Transactions.Delete(r.Context(), user, id)
	})
}
