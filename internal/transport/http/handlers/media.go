package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/videotube-accounts/internal/models"
	"github.com/pribylovaa/videotube-accounts/internal/service"
	"github.com/pribylovaa/videotube-accounts/internal/transport/http/apierrors"
)

// mediaKind переводит сегмент пути в вид медиа.
func mediaKind(r *http.Request) (models.MediaKind, bool) {
	switch chi.URLParam(r, "kind") {
	case "avatar":
		return models.MediaAvatar, true
	case "cover-image":
		return models.MediaCover, true
	default:
		return "", false
	}
}

func (h *Handlers) MediaPresign(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	kind, ok := mediaKind(r)
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	var in presignRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	info, err := h.svc.MediaUploadURL(r.Context(), user.ID, kind, in.ContentType, in.ContentLength)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, presignFromModel(info))
}

func (h *Handlers) MediaConfirm(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	kind, ok := mediaKind(r)
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	var in confirmRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	updated, err := h.svc.ConfirmMediaUpload(r.Context(), user.ID, kind, in.Key)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
