package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/isdelr/hbnb-api/internal/auth"
	"github.com/isdelr/hbnb-api/internal/models"
	"github.com/isdelr/hbnb-api/internal/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles login requests.
type AuthHandler struct {
	service services.AuthServiceProvider
	issuer  *auth.Issuer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AuthServiceProvider, issuer *auth.Issuer) *AuthHandler {
	return &AuthHandler{service: service, issuer: issuer}
}

// Login handles user authentication and JWT generation.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeObject(r)
	if !ok {
		writeError(w, http.StatusBadRequest, MsgNotJSON)
		return
	}
	email, _ := payload["email"].(string)
	password, _ := payload["password"].(string)
	switch {
	case email == "":
		writeError(w, http.StatusBadRequest, "Missing email")
		return
	case password == "":
		writeError(w, http.StatusBadRequest, "Missing password")
		return
	}

	user, err := h.service.Authenticate(email, password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		log.Warn().Str("email", email).Msg("Failed authentication attempt")
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		writeServiceError(w, err, "Failed to authenticate user")
		return
	}

	token, err := h.issuer.GenerateJWT(user)
	if err != nil {
		writeServiceError(w, err, "Failed to generate JWT")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  time.Now().Add(auth.TokenTTL),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  models.PublicMap(user),
	})
}
