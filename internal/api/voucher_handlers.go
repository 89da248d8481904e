package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/captive-portal/voucher-server/internal/models"
	"github.com/captive-portal/voucher-server/internal/storage"
	"github.com/captive-portal/voucher-server/pkg/crypto"
)

// ========== Voucher handlers ==========

// HandleListVouchers lists vouchers. Archived vouchers are excluded
// unless include_archived is set.
func (s *Server) HandleListVouchers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters := storage.VoucherFilters{
		IncludeArchived: r.URL.Query().Get("include_archived") == "true",
	}

	if gid := r.URL.Query().Get("gateway_id"); gid != "" {
		filters.GatewayID = &gid
	}

	if status := r.URL.Query().Get("status"); status != "" {
		st := models.VoucherStatus(status)
		filters.Status = &st
	}

	limit, offset := pagination(r)

	vouchers, total, err := s.store.ListVouchers(ctx, filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"vouchers": vouchers,
		"total":    total,
	})
}

// HandleCreateVoucher issues a new voucher. Quotas default to the
// owning gateway's configured defaults.
func (s *Server) HandleCreateVoucher(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GatewayID string `json:"gateway_id" validate:"required"`
		Minutes   int    `json:"minutes" validate:"min=0"`
		Megabytes int    `json:"megabytes" validate:"min=0"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	gateway, err := s.store.GetGateway(r.Context(), req.GatewayID)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "gateway not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	voucher := &models.Voucher{
		GatewayID: gateway.ID,
		Status:    models.VoucherStatusNew,
		Minutes:   req.Minutes,
		Megabytes: req.Megabytes,
	}

	if voucher.Minutes == 0 {
		voucher.Minutes = gateway.DefaultMinutes
	}
	if voucher.Megabytes == 0 {
		voucher.Megabytes = gateway.DefaultMegabytes
	}

	// Retry on the rare code collision; the unique constraint is the
	// arbiter.
	for attempt := 0; attempt < 3; attempt++ {
		code, err := crypto.GenerateCode(s.config.Portal.VoucherCodeLength)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, "failed to generate code")
			return
		}
		voucher.Code = code

		err = s.store.CreateVoucher(r.Context(), voucher)
		if err == storage.ErrDuplicateKey {
			continue
		}
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		s.respondJSON(w, http.StatusCreated, voucher)
		return
	}

	s.respondError(w, http.StatusInternalServerError, "failed to generate a unique code")
}

// HandleGetVoucher gets a voucher
func (s *Server) HandleGetVoucher(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid voucher id")
		return
	}

	voucher, err := s.store.GetVoucher(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "voucher not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, voucher)
}

// HandleArchiveVoucher archives a voucher. Terminal: an archived
// voucher never comes back and its token no longer validates.
func (s *Server) HandleArchiveVoucher(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid voucher id")
		return
	}

	if err := s.store.ArchiveVoucher(ctx, id); err != nil {
		if err == storage.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "voucher not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
