package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"graintrade.org/internal/audit"
	"graintrade.org/internal/auth"
	"graintrade.org/internal/users"
)

type userRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

func (req userRequest) toUser(id, hash string) users.User {
	return users.User{
		ID:           id,
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
	}
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}
	if id.Disabled {
		writeError(w, r, http.StatusBadRequest, "Inactive user")
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()

	if _, found, err := a.users.FindByUsername(ctx, strings.TrimSpace(req.Username)); err != nil {
		a.internalError(w, r, err)
		return
	} else if found {
		writeError(w, r, http.StatusBadRequest, "Username already exists")
		return
	}
	if _, found, err := a.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email))); err != nil {
		a.internalError(w, r, err)
		return
	} else if found {
		writeError(w, r, http.StatusBadRequest, "Email already exists")
		return
	}

	hash, err := a.service.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "password is required")
		return
	}
	u := req.toUser("", hash)
	if err := a.users.Create(ctx, &u); err != nil {
		a.userWriteError(w, r, err)
		return
	}

	if err := a.notifier.UserCreated(ctx, u); err != nil {
		a.logger.WithContext(ctx).WithError(err).Warn("user created notification failed")
	}
	audit.LogEvent(ctx, "users.created", map[string]any{"user_id": u.ID, "username": u.Username})
	writeJSON(w, http.StatusCreated, u)
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := a.users.List(r.Context())
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, found, err := a.users.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := a.activeOwner(w, r, "You can only update your own user")
	if !ok {
		return
	}
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := a.service.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "password is required")
		return
	}
	u := req.toUser(id, hash)
	if err := a.users.Update(r.Context(), &u); err != nil {
		a.userWriteError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "users.updated", map[string]any{"user_id": u.ID})
	writeJSON(w, http.StatusAccepted, u)
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := a.activeOwner(w, r, "You can only delete your own user")
	if !ok {
		return
	}
	if err := a.users.Delete(r.Context(), id); err != nil {
		a.userWriteError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "users.deleted", map[string]any{"user_id": id})
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// activeOwner checks that the caller is enabled and addresses their own record.
func (a *API) activeOwner(w http.ResponseWriter, r *http.Request, forbidden string) (string, bool) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, msgInvalidCredentials)
		return "", false
	}
	if caller.Disabled {
		writeError(w, r, http.StatusBadRequest, "Inactive user")
		return "", false
	}
	id := r.PathValue("id")
	if caller.ID != id {
		writeError(w, r, http.StatusForbidden, forbidden)
		return "", false
	}
	return id, true
}

func (a *API) userWriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, users.ErrUsernameTaken):
		writeError(w, r, http.StatusBadRequest, "Username already exists")
	case errors.Is(err, users.ErrEmailTaken):
		writeError(w, r, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, users.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "User not found")
	default:
		a.internalError(w, r, err)
	}
}

func (a *API) internalError(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.WithContext(r.Context()).WithError(err).Error("user store failure")
	writeError(w, r, http.StatusInternalServerError, "internal error")
}
