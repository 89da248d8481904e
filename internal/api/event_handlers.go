package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/captive-portal/voucher-server/internal/models"
	"github.com/captive-portal/voucher-server/internal/storage"
)

// ========== Auth event handlers ==========

// HandleListEvents lists auth events with filters
func (s *Server) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filters := storage.AuthEventFilters{}

	if gid := query.Get("gateway_id"); gid != "" {
		filters.GatewayID = &gid
	}

	if vid := query.Get("voucher_id"); vid != "" {
		id, err := uuid.Parse(vid)
		if err == nil {
			filters.VoucherID = &id
		}
	}

	if stage := query.Get("stage"); stage != "" {
		st := models.AuthStage(stage)
		filters.Stage = &st
	}

	if status := query.Get("status"); status != "" {
		st := models.AuthStatus(status)
		filters.Status = &st
	}

	if start := query.Get("start_time"); start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err == nil {
			filters.StartTime = &t
		}
	}

	if end := query.Get("end_time"); end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err == nil {
			filters.EndTime = &t
		}
	}

	limit, offset := pagination(r)

	events, total, err := s.store.ListAuthEvents(ctx, filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  total,
	})
}
