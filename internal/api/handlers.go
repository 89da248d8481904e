package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/captive-portal/voucher-server/internal/models"
	"github.com/captive-portal/voucher-server/internal/storage"
	"github.com/captive-portal/voucher-server/pkg/crypto"
)

// ========== Auth handlers ==========

// HandleLogin handles admin login
func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Get user
	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	// Verify password
	if !s.auth.VerifyPassword(req.Password, user.PasswordHash) {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	// Check user status
	if !user.IsActive {
		s.respondError(w, http.StatusForbidden, "account is disabled")
		return
	}

	// Generate tokens
	accessToken, refreshToken, err := s.auth.GenerateTokenPair(user)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
	})
}

// ========== Network handlers ==========

// HandleListNetworks lists networks
func (s *Server) HandleListNetworks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, offset := pagination(r)

	networks, total, err := s.store.ListNetworks(ctx, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"networks": networks,
		"total":    total,
	})
}

// HandleCreateNetwork creates a network
func (s *Server) HandleCreateNetwork(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title" validate:"required,min=3,max=100"`
		Description string `json:"description"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	network := &models.Network{
		Title:       req.Title,
		Description: req.Description,
	}

	if err := s.store.CreateNetwork(r.Context(), network); err != nil {
		if err == storage.ErrDuplicateKey {
			s.respondError(w, http.StatusConflict, "network already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, network)
}

// HandleGetNetwork gets a network
func (s *Server) HandleGetNetwork(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid network id")
		return
	}

	network, err := s.store.GetNetwork(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "network not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, network)
}

// HandleUpdateNetwork updates a network
func (s *Server) HandleUpdateNetwork(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid network id")
		return
	}

	var req struct {
		Title       string `json:"title" validate:"required,min=3,max=100"`
		Description string `json:"description"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	network, err := s.store.GetNetwork(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "network not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	network.Title = req.Title
	network.Description = req.Description

	if err := s.store.UpdateNetwork(ctx, network); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, network)
}

// ========== User handlers ==========

// HandleListUsers lists users
func (s *Server) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var networkID *uuid.UUID
	if nid := r.URL.Query().Get("network_id"); nid != "" {
		id, err := uuid.Parse(nid)
		if err == nil {
			networkID = &id
		}
	}

	limit, offset := pagination(r)

	users, total, err := s.store.ListUsers(ctx, networkID, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": total,
	})
}

// HandleCreateUser creates a user
func (s *Server) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string     `json:"email" validate:"required,email"`
		Password  string     `json:"password" validate:"required,min=6"`
		NetworkID *uuid.UUID `json:"network_id,omitempty"`
		GatewayID *string    `json:"gateway_id,omitempty"`
		IsAdmin   bool       `json:"is_admin"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		NetworkID:    req.NetworkID,
		GatewayID:    req.GatewayID,
		IsAdmin:      req.IsAdmin,
		IsActive:     true,
		Settings:     make(models.Variables),
	}

	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if err == storage.ErrDuplicateKey {
			s.respondError(w, http.StatusConflict, "user with this email already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, user)
}

// HandleGetUser gets a user
func (s *Server) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

// HandleUpdateUser updates a user
func (s *Server) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password,omitempty"`
		IsActive bool   `json:"is_active"`
		IsAdmin  bool   `json:"is_admin"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	user.Email = req.Email
	user.IsActive = req.IsActive
	user.IsAdmin = req.IsAdmin

	if req.Password != "" {
		hash, err := crypto.HashPassword(req.Password)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, "failed to hash password")
			return
		}
		user.PasswordHash = hash
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

// HandleDeleteUser deletes a user
func (s *Server) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := s.store.DeleteUser(ctx, id); err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ========== Helper methods ==========

// HandleHealth health check
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// respondJSON responds with JSON
func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError responds with error
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// pagination parses limit/offset query parameters
func pagination(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
