package handlers

import (
	"net/http"
	"strings"

	"github.com/pribylovaa/videotube-accounts/internal/service"
	"github.com/pribylovaa/videotube-accounts/internal/transport/http/apierrors"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username: in.Username,
		Email:    in.Email,
		FullName: in.FullName,
		Password: in.Password,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	sess, err := h.svc.Login(r.Context(), service.LoginInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.cookies.setSession(w, sess.Tokens)
	writeJSON(w, http.StatusOK, sessionFromModel(sess))
}

// RefreshToken принимает refresh-токен из cookie, а при её отсутствии — из тела.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var presented string
	if c, err := r.Cookie(RefreshCookie); err == nil {
		presented = strings.TrimSpace(c.Value)
	}

	if presented == "" {
		var in refreshRequest
		if err := decodeOptional(r, &in); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}
		presented = in.RefreshToken
	}

	sess, err := h.svc.RefreshSession(r.Context(), presented)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.cookies.setSession(w, sess.Tokens)
	writeJSON(w, http.StatusOK, sessionFromModel(sess))
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.svc.Logout(r.Context(), user.ID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.cookies.clearSession(w)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in changePasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), user.ID, in.OldPassword, in.NewPassword); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *Handlers) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in updateAccountRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	updated, err := h.svc.UpdateAccount(r.Context(), user.ID, service.UpdateAccountInput{
		FullName: in.FullName,
		Email:    in.Email,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
