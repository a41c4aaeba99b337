package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"invoicer/internal/auth"
	"invoicer/internal/core"
	"invoicer/internal/invoice"
	"invoicer/internal/session"
	"invoicer/internal/submission"
)

type (
	columnResponse struct {
		Column  core.Column  `json:"column"`
		Session session.Info `json:"session"`
	}

	itemResponse struct {
		Item    core.LineItem `json:"item"`
		Session session.Info  `json:"session"`
	}
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	info := s.deps.Sessions.Create(r.Context(), auth.Owner(r.Context()))
	w.Header().Set("Location", "/api/sessions/"+info.ID)
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.deps.Sessions.Get(chi.URLParam(r, "sessionID"), auth.Owner(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.End(chi.URLParam(r, "sessionID"), auth.Owner(r.Context())); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetHeader(w http.ResponseWriter, r *http.Request) {
	var req headerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	h, err := req.toHeader()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.update(w, r, func(inv *invoice.Invoice) error {
		inv.SetHeader(h)
		return nil
	})
}

func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	var req columnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	kind, err := req.kind()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var col core.Column
	info, err := s.deps.Sessions.Update(chi.URLParam(r, "sessionID"), auth.Owner(r.Context()),
		func(inv *invoice.Invoice) error {
			c, err := inv.AddColumn(req.Name, kind)
			col = c
			return err
		})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, columnResponse{Column: col, Session: info})
}

func (s *Server) handleRemoveColumn(w http.ResponseWriter, r *http.Request) {
	columnID := chi.URLParam(r, "columnID")
	s.update(w, r, func(inv *invoice.Invoice) error {
		if !inv.RemoveColumn(columnID) {
			return fmt.Errorf("%w: %s", core.ErrUnknownColumn, columnID)
		}
		return nil
	})
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var item core.LineItem
	info, err := s.deps.Sessions.Update(chi.URLParam(r, "sessionID"), auth.Owner(r.Context()),
		func(inv *invoice.Invoice) error {
			item = inv.AddItem()
			return nil
		})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemResponse{Item: item, Session: info})
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	s.update(w, r, func(inv *invoice.Invoice) error {
		return inv.RemoveItem(itemID)
	})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	field, err := invoice.ParseField(req.Field)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	itemID := chi.URLParam(r, "itemID")
	s.update(w, r, func(inv *invoice.Invoice) error {
		return inv.UpdateField(itemID, field, string(req.Value))
	})
}

func (s *Server) handleUpdateCustom(w http.ResponseWriter, r *http.Request) {
	var req customRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	itemID, columnID := chi.URLParam(r, "itemID"), chi.URLParam(r, "columnID")
	s.update(w, r, func(inv *invoice.Invoice) error {
		return inv.UpdateCustomField(itemID, columnID, string(req.Value))
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	info, err := s.deps.Sessions.Get(chi.URLParam(r, "sessionID"), auth.Owner(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.deps.Controller.Validate(info.Invoice.Header); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// handleExport renders the document and ends the session. A failed export
// leaves the session open for corrections.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	owner := auth.Owner(r.Context())
	var art submission.Artifact
	err := s.deps.Sessions.Finish(chi.URLParam(r, "sessionID"), owner, func(snap invoice.Snapshot) error {
		a, err := s.deps.Controller.Export(r.Context(), owner, snap)
		art = a
		return err
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", art.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.Header().Set("X-Invoice-Total", art.Total.StringFixed(2))
	if art.RecordID != "" {
		w.Header().Set("X-Record-ID", art.RecordID)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}

// handleNotify queues delivery. The session stays open.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	owner := auth.Owner(r.Context())
	info, err := s.deps.Sessions.Get(chi.URLParam(r, "sessionID"), owner)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.deps.Controller.Notify(r.Context(), owner, info.Invoice); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// update applies fn to the session's invoice and responds with the new state.
func (s *Server) update(w http.ResponseWriter, r *http.Request, fn func(*invoice.Invoice) error) {
	info, err := s.deps.Sessions.Update(chi.URLParam(r, "sessionID"), auth.Owner(r.Context()), fn)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
