package http

import (
	"net/http"

	"minitracker/internal/core"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, sess *core.Session) {
	d, err := s.svc.Dashboard.Load(r.Context(), sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardResponse(d))
}

func (s *Server) handleListRevenues(w http.ResponseWriter, r *http.Request, sess *core.Session) {
	items, err := s.svc.Ledger.Revenues(r.Context(), sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRevenueResponses(items))
}

func (s *Server) handleCreateRevenue(w http.ResponseWriter, r *http.Request, sess *core.Session) {
	var req revenueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rev, err := req.toCore()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.svc.Ledger.AddRevenue(r.Context(), sess, rev)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRevenueResponses([]core.Revenue{created})[0])
}

func (s *Server) handleDeleteRevenue(w http.ResponseWriter, r *http.Request, sess *core.Session) {
	id, err := pathID(r)
	if err == nil {
		err = s.svc.Ledger.RemoveRevenue(r.Context(), sess, id)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, sess *core.Session) {
	items, err := s.svc.Ledger.Expenses(r.Context(), sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseResponses(items))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, sess *core.Session) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	exp, err := req.toCore()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.svc.Ledger.AddExpense(r.Context(), sess, exp)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newExpenseResponses([]core.Expense{created})[0])
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, sess *core.Session) {
	id, err := pathID(r)
	if err == nil {
		err = s.svc.Ledger.RemoveExpense(r.Context(), sess, id)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
