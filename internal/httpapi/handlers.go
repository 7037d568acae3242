package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/types"
)

// decode reads the request body into v and answers 400 (or 413) itself
// when it cannot.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeBody(r, v); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
			return false
		}
		writeError(w, r, http.StatusBadRequest, "bad_body", "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	var req types.IdentifyRequest
	if !s.decode(w, r, &req) {
		return
	}

	resp, err := s.gate.Identify(r.Context(), req)
	if err != nil {
		s.fail(w, r, "identify", err)
		return
	}

	status := http.StatusOK
	if resp.Reason == types.ReasonUnknownTerminal {
		status = http.StatusForbidden
	}
	respond(w, r, status, resp)
}

func (s *Server) handleAccess(w http.ResponseWriter, r *http.Request) {
	var req types.AccessRequest
	if !s.decode(w, r, &req) {
		return
	}

	resp, err := s.gate.RecordAction(r.Context(), req)
	if err != nil {
		s.fail(w, r, "record action", err)
		return
	}

	respond(w, r, accessStatus(resp), resp)
}

// accessStatus maps a recordAction result to its HTTP status: denials
// are 403 except a duplicate entry, which conflicts with the open session.
func accessStatus(resp types.AccessResponse) int {
	switch {
	case resp.Success:
		return http.StatusOK
	case resp.Reason == types.ReasonSessionAlreadyOpen:
		return http.StatusConflict
	default:
		return http.StatusForbidden
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := types.SessionQuery{DNI: q.Get("dni"), Date: q.Get("date")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_query", "limit must be an integer")
			return
		}
		query.Limit = n
	}

	resp, err := s.gate.ListSessions(r.Context(), query)
	if err != nil {
		s.fail(w, r, "list sessions", err)
		return
	}
	respond(w, r, http.StatusOK, resp)
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req types.EnrollRequest
	if !s.decode(w, r, &req) {
		return
	}

	resp, err := s.enrollment.Enroll(r.Context(), req)
	if err != nil {
		s.fail(w, r, "enroll", err)
		return
	}
	respond(w, r, http.StatusOK, resp)
}

func (s *Server) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	resp, err := s.enrollment.Get(r.Context(), chi.URLParam(r, "dni"))
	if err != nil {
		s.fail(w, r, "get identity", err)
		return
	}
	respond(w, r, http.StatusOK, resp)
}

func (s *Server) handleListIdentities(w http.ResponseWriter, r *http.Request) {
	resp, err := s.enrollment.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.fail(w, r, "list identities", err)
		return
	}
	respond(w, r, http.StatusOK, resp)
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req types.StatusRequest
	if !s.decode(w, r, &req) {
		return
	}

	resp, err := s.enrollment.SetStatus(r.Context(), chi.URLParam(r, "dni"), req)
	if err != nil {
		s.fail(w, r, "set identity status", err)
		return
	}
	respond(w, r, http.StatusOK, resp)
}

func (s *Server) handleIssuePass(w http.ResponseWriter, r *http.Request) {
	var req types.PassRequest
	if !s.decode(w, r, &req) {
		return
	}

	resp, err := s.passes.Issue(r.Context(), req)
	if err != nil {
		s.fail(w, r, "issue pass", err)
		return
	}
	respond(w, r, http.StatusCreated, resp)
}

func (s *Server) handleListPasses(w http.ResponseWriter, r *http.Request) {
	resp, err := s.passes.List(r.Context(), r.URL.Query().Get("dni"))
	if err != nil {
		s.fail(w, r, "list passes", err)
		return
	}
	respond(w, r, http.StatusOK, resp)
}

func (s *Server) handleRevokePass(w http.ResponseWriter, r *http.Request) {
	resp, err := s.passes.Revoke(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "revoke pass", err)
		return
	}
	respond(w, r, http.StatusOK, resp)
}

func (s *Server) handleExitAlerts(w http.ResponseWriter, r *http.Request) {
	resp, err := s.alerts.UpcomingExits(r.Context())
	if err != nil {
		s.fail(w, r, "exit alerts", err)
		return
	}
	respond(w, r, http.StatusOK, resp)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req types.HeartbeatRequest
	if !s.decode(w, r, &req) {
		return
	}

	resp, err := s.heartbeats.Record(r.Context(), req)
	if err != nil {
		s.fail(w, r, "heartbeat", err)
		return
	}
	respond(w, r, http.StatusOK, resp)
}
