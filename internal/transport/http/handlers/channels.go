package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/videotube-accounts/internal/transport/http/apierrors"
)

func (h *Handlers) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	viewer, ok := currentUser(w, r)
	if !ok {
		return
	}

	profile, err := h.svc.ChannelProfile(r.Context(), chi.URLParam(r, "username"), viewer.ID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.svc.Subscribe(r.Context(), user.ID, chi.URLParam(r, "username")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.svc.Unsubscribe(r.Context(), user.ID, chi.URLParam(r, "username")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handlers) WatchHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.svc.WatchHistory(r.Context(), user.ID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{Items: items})
}
