package httpapi

import (
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"graintrade.org/internal/audit"
	"graintrade.org/internal/auth"
)

// tokenRequest is the JSON login body. Form posts use username, password and
// a space separated scope field instead.
type tokenRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Scopes   []string `json:"scopes"`
	Scope    string   `json:"scope"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	req, err := readTokenRequest(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}
	scopes := append(auth.ParseScopeString(req.Scope), req.Scopes...)

	token, claims, err := a.service.Login(r.Context(), auth.Credential{Username: req.Username, Password: req.Password}, scopes)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			audit.LogEvent(r.Context(), "auth.login.rejected", map[string]any{"username": req.Username})
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, r, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		a.logger.WithContext(r.Context()).WithError(err).Error("token issuance failed")
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{
		"username":   claims.Subject,
		"user_id":    claims.UserID,
		"scopes":     claims.Scopes,
		"expires_at": claims.ExpiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(claims.ExpiresAt.Sub(claims.IssuedAt) / time.Second),
	})
}

func readTokenRequest(w http.ResponseWriter, r *http.Request) (tokenRequest, error) {
	var req tokenRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := decodeJSON(w, r, &req); err != nil {
			return tokenRequest{}, err
		}
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return tokenRequest{}, errors.New("invalid form body")
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
		req.Scope = r.PostFormValue("scope")
	default:
		return tokenRequest{}, errors.New("unsupported content type")
	}
	return req, nil
}
