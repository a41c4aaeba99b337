package http

import (
	"errors"
	"net/http"

	"invoicer/internal/auth"
	"invoicer/internal/core"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		s.respondError(w, r, errRecordsUnavailable)
		return
	}
	p, err := s.deps.Records.GetProfile(r.Context(), auth.Owner(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePutProfile merges the fields present in the body into the caller's
// profile, creating it on first use.
func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		s.respondError(w, r, errRecordsUnavailable)
		return
	}
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := r.Context()
	owner := auth.Owner(ctx)
	current, err := s.deps.Records.GetProfile(ctx, owner)
	if err != nil && !errors.Is(err, core.ErrProfileNotFound) {
		s.respondError(w, r, err)
		return
	}
	if err := s.deps.Records.SaveProfile(ctx, owner, req.apply(current)); err != nil {
		s.respondError(w, r, err)
		return
	}
	saved, err := s.deps.Records.GetProfile(ctx, owner)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
