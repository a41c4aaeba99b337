package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"invoicer/internal/auth"
	"invoicer/internal/core"
)

type invoicesResponse struct {
	Records []core.Record      `json:"records"`
	Summary core.RecordSummary `json:"summary"`
}

// handleListInvoices lists the caller's exported invoices, optionally
// filtered by ?status=.
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		s.respondError(w, r, errRecordsUnavailable)
		return
	}

	var want core.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := core.ParseStatus(raw)
		if err != nil {
			s.respondError(w, r, &core.ValidationError{Field: "status", Err: err})
			return
		}
		want = st
	}

	recs, err := s.deps.Records.ListRecords(r.Context(), auth.Owner(r.Context()))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("list records: %w", err))
		return
	}
	if want != "" {
		filtered := recs[:0]
		for _, rec := range recs {
			if rec.Status == want {
				filtered = append(filtered, rec)
			}
		}
		recs = filtered
	}
	if recs == nil {
		recs = []core.Record{}
	}
	writeJSON(w, http.StatusOK, invoicesResponse{Records: recs, Summary: core.Summarize(recs)})
}

func (s *Server) handleUpdateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		s.respondError(w, r, errRecordsUnavailable)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	status, err := core.ParseStatus(req.Status)
	if err != nil {
		s.respondError(w, r, &core.ValidationError{Field: "status", Err: err})
		return
	}

	id := chi.URLParam(r, "recordID")
	owner := auth.Owner(r.Context())
	if owner != "" {
		owned, err := s.owns(r, owner, id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if !owned {
			s.respondError(w, r, core.ErrRecordNotFound)
			return
		}
	}

	if err := s.deps.Records.UpdateStatus(r.Context(), id, status); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}

// owns reports whether the record belongs to owner. Other owners' records
// are indistinguishable from missing ones.
func (s *Server) owns(r *http.Request, owner, id string) (bool, error) {
	recs, err := s.deps.Records.ListRecords(r.Context(), owner)
	if err != nil {
		return false, fmt.Errorf("list records: %w", err)
	}
	for _, rec := range recs {
		if rec.ID == id {
			return true, nil
		}
	}
	return false, nil
}
