package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/captive-portal/voucher-server/internal/models"
	"github.com/captive-portal/voucher-server/internal/storage"
)

// ========== Gateway handlers ==========

// HandleListGateways lists gateways
func (s *Server) HandleListGateways(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var networkID *uuid.UUID
	if nid := r.URL.Query().Get("network_id"); nid != "" {
		id, err := uuid.Parse(nid)
		if err == nil {
			networkID = &id
		}
	}

	limit, offset := pagination(r)

	gateways, total, err := s.store.ListGateways(ctx, networkID, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"gateways": gateways,
		"total":    total,
	})
}

// HandleCreateGateway creates a gateway
func (s *Server) HandleCreateGateway(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID               string    `json:"id" validate:"required,min=3,max=100"`
		NetworkID        uuid.UUID `json:"network_id" validate:"required"`
		Title            string    `json:"title" validate:"required,min=3,max=100"`
		GwAddress        string    `json:"gw_address" validate:"required"`
		GwPort           int       `json:"gw_port" validate:"required"`
		Logo             string    `json:"logo"`
		DefaultMinutes   int       `json:"default_minutes" validate:"min=0"`
		DefaultMegabytes int       `json:"default_megabytes" validate:"min=0"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	gateway := &models.Gateway{
		ID:               req.ID,
		NetworkID:        req.NetworkID,
		Title:            req.Title,
		GwAddress:        req.GwAddress,
		GwPort:           req.GwPort,
		Logo:             req.Logo,
		DefaultMinutes:   req.DefaultMinutes,
		DefaultMegabytes: req.DefaultMegabytes,
	}

	if gateway.DefaultMinutes == 0 {
		gateway.DefaultMinutes = s.config.Portal.DefaultMinutes
	}
	if gateway.DefaultMegabytes == 0 {
		gateway.DefaultMegabytes = s.config.Portal.DefaultMegabytes
	}

	if err := s.store.CreateGateway(r.Context(), gateway); err != nil {
		if err == storage.ErrDuplicateKey {
			s.respondError(w, http.StatusConflict, "gateway already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, gateway)
}

// HandleGetGateway gets a gateway
func (s *Server) HandleGetGateway(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	gateway, err := s.store.GetGateway(ctx, chi.URLParam(r, "gateway_id"))
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "gateway not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, gateway)
}

// HandleUpdateGateway updates a gateway
func (s *Server) HandleUpdateGateway(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Title            string `json:"title" validate:"required,min=3,max=100"`
		GwAddress        string `json:"gw_address" validate:"required"`
		GwPort           int    `json:"gw_port" validate:"required"`
		Logo             string `json:"logo"`
		DefaultMinutes   int    `json:"default_minutes" validate:"min=0"`
		DefaultMegabytes int    `json:"default_megabytes" validate:"min=0"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	gateway, err := s.store.GetGateway(ctx, chi.URLParam(r, "gateway_id"))
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "gateway not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	gateway.Title = req.Title
	gateway.GwAddress = req.GwAddress
	gateway.GwPort = req.GwPort
	gateway.Logo = req.Logo
	gateway.DefaultMinutes = req.DefaultMinutes
	gateway.DefaultMegabytes = req.DefaultMegabytes

	if err := s.store.UpdateGateway(ctx, gateway); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, gateway)
}
