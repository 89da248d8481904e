package portal

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/captive-portal/voucher-server/internal/models"
	"github.com/captive-portal/voucher-server/internal/session"
	"github.com/captive-portal/voucher-server/internal/storage"
)

// EventPublisher receives portal lifecycle events. Satisfied by the
// NATS publisher in internal/server.
type EventPublisher interface {
	VoucherActivated(voucher *models.Voucher)
	VoucherExpired(voucher *models.Voucher)
	GatewayPing(gatewayID string, t models.GatewayTelemetry)
	AuthEvent(event *models.AuthEvent)
}

// Handler serves the wifidog protocol callbacks plus the browser-facing
// login and portal pages. Each request is an independent, stateless
// unit of work; the store is the only suspension point.
type Handler struct {
	store    storage.Store
	tokens   *session.TokenService
	browsers *session.BrowserStore
	events   EventPublisher
}

// NewHandler creates a wifidog protocol handler
func NewHandler(store storage.Store, tokens *session.TokenService, browsers *session.BrowserStore, events EventPublisher) *Handler {
	return &Handler{
		store:    store,
		tokens:   tokens,
		browsers: browsers,
		events:   events,
	}
}

// Routes mounts the wifidog endpoints on a chi router
func (h *Handler) Routes(r chi.Router) {
	r.Get("/login/", h.HandleLoginPage)
	r.Post("/login/", h.HandleLogin)
	r.Get("/ping/", h.HandlePing)
	r.Get("/auth/", h.HandleAuth)
	r.Get("/portal/", h.HandlePortal)
}

// loginPage is the response model of the login step
type loginPage struct {
	Gateway *models.GatewayPage `json:"gateway"`
	Error   string              `json:"error,omitempty"`
}

// HandleLoginPage renders the voucher entry page model for a gateway
func (h *Handler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	page, ok := h.gatewayPage(w, r, r.URL.Query().Get("gw_id"))
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, loginPage{Gateway: page})
}

// HandleLogin handles a submitted voucher code. On success the client
// is redirected to the gateway's auth endpoint carrying a fresh
// session token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	gwID := r.PostFormValue("gw_id")
	if gwID == "" {
		gwID = r.URL.Query().Get("gw_id")
	}

	page, ok := h.gatewayPage(w, r, gwID)
	if !ok {
		return
	}

	code := r.PostFormValue("voucher_code")
	if code == "" {
		respondJSON(w, http.StatusUnprocessableEntity, loginPage{
			Gateway: page,
			Error:   "Please enter a voucher code",
		})
		return
	}

	gateway, err := h.store.GetGateway(r.Context(), gwID)
	if err != nil {
		h.storeError(w, err)
		return
	}

	token, err := h.tokens.Generate()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate session token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Single-statement compare-and-set: of two concurrent redemptions
	// of the same code exactly one wins. Codes that are unknown or
	// already redeemed report the same error, so the login step never
	// leaks voucher status.
	voucher, err := h.store.RedeemVoucher(r.Context(), code, token, time.Now())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondJSON(w, http.StatusUnprocessableEntity, loginPage{
				Gateway: page,
				Error:   "Voucher not found, did you type the code correctly?",
			})
			return
		}
		h.storeError(w, err)
		return
	}

	log.Info().
		Str("gateway", gateway.ID).
		Str("voucher", voucher.ID.String()).
		Msg("Voucher redeemed")

	h.events.VoucherActivated(voucher)

	// The next destination is per-device state, so it lives in the
	// browser session rather than on the voucher.
	sid, err := h.browsers.Load(w, r)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create browser session")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if next := r.PostFormValue("url"); next != "" {
		h.browsers.Set(sid, session.KeyNextURL, next)
	}
	h.browsers.Set(sid, session.KeyVoucherToken, voucher.Token)

	authURL := fmt.Sprintf("http://%s:%d/wifidog/auth?token=%s",
		gateway.GwAddress, gateway.GwPort, voucher.Token)

	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandlePing handles the periodic gateway heartbeat. Idempotent, no
// auth implications.
func (h *Handler) HandlePing(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	gwID := query.Get("gw_id")
	if gwID == "" {
		http.NotFound(w, r)
		return
	}

	telemetry := models.GatewayTelemetry{
		IP:            clientIP(r),
		UserAgent:     r.UserAgent(),
		SysUptime:     parseInt64(query.Get("sys_uptime")),
		WifidogUptime: parseInt64(query.Get("wifidog_uptime")),
		MemFree:       parseInt64(query.Get("sys_memfree")),
		Load:          parseFloat64(query.Get("sys_load")),
		SeenAt:        time.Now(),
	}

	if err := h.store.RecordTelemetry(r.Context(), gwID, telemetry); err != nil {
		h.storeError(w, err)
		return
	}

	h.events.GatewayPing(gwID, telemetry)

	// Fixed literal acknowledgement the firmware expects.
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Pong"))
}

// HandleAuth handles the repeated per-client authorization poll. The
// two-line response shape is parsed by gateway firmware and must not
// change.
func (h *Handler) HandleAuth(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	gwID := query.Get("gw_id")
	if gwID == "" {
		http.NotFound(w, r)
		return
	}

	if _, err := h.store.GetGateway(r.Context(), gwID); err != nil {
		h.storeError(w, err)
		return
	}

	incoming, err := strconv.ParseInt(query.Get("incoming"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	outgoing, err := strconv.ParseInt(query.Get("outgoing"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	event := &models.AuthEvent{
		GatewayID:     gwID,
		UserAgent:     r.UserAgent(),
		Stage:         models.AuthStage(query.Get("stage")),
		ClientIP:      query.Get("ip"),
		ClientMAC:     query.Get("mac"),
		Token:         query.Get("token"),
		IncomingBytes: incoming,
		OutgoingBytes: outgoing,
	}

	accountant := NewAccountant(h.store, h.events)
	status, messages := accountant.Evaluate(r.Context(), event, time.Now())

	event.Status = status
	event.Messages = messages

	// Append-only log entry recording the post-evaluation status.
	if err := h.store.CreateAuthEvent(r.Context(), event); err != nil {
		log.Error().Err(err).Str("gateway", gwID).Msg("Failed to record auth event")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.events.AuthEvent(event)

	log.Debug().
		Str("gateway", gwID).
		Str("stage", string(event.Stage)).
		Str("status", string(status)).
		Msg("Auth poll")

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Auth: %s\nMessages: %s\n", status, messages)
}

// portalPage is the response model of the portal landing page
type portalPage struct {
	Gateway *models.GatewayPage `json:"gateway"`
	Voucher *voucherSummary     `json:"voucher,omitempty"`
	NextURL string              `json:"nextUrl,omitempty"`
}

type voucherSummary struct {
	Code      string               `json:"code"`
	Status    models.VoucherStatus `json:"status"`
	Minutes   int                  `json:"minutes"`
	Megabytes int                  `json:"megabytes"`
}

// HandlePortal renders the landing page model after successful auth
func (h *Handler) HandlePortal(w http.ResponseWriter, r *http.Request) {
	page, ok := h.gatewayPage(w, r, r.URL.Query().Get("gw_id"))
	if !ok {
		return
	}

	resp := portalPage{Gateway: page}

	sid, err := h.browsers.Load(w, r)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load browser session")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Absent or stale token renders the anonymous portal.
	if token := h.browsers.Get(sid, session.KeyVoucherToken); token != "" {
		if voucher, err := h.tokens.Validate(r.Context(), token); err == nil {
			resp.Voucher = &voucherSummary{
				Code:      voucher.Code,
				Status:    voucher.Status,
				Minutes:   voucher.Minutes,
				Megabytes: voucher.Megabytes,
			}
		}
	}

	// Consume the stored destination so revisiting the portal does
	// not redirect again.
	resp.NextURL = h.browsers.Pop(sid, session.KeyNextURL)

	respondJSON(w, http.StatusOK, resp)
}

// gatewayPage resolves the denormalized page model for a gw_id,
// writing a 404 when the parameter is missing or unknown.
func (h *Handler) gatewayPage(w http.ResponseWriter, r *http.Request, gwID string) (*models.GatewayPage, bool) {
	if gwID == "" {
		http.NotFound(w, r)
		return nil, false
	}

	page, err := h.store.GetGatewayPage(r.Context(), gwID)
	if err != nil {
		h.storeError(w, err)
		return nil, false
	}

	return page, true
}

// storeError maps store errors onto protocol responses
func (h *Handler) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	log.Error().Err(err).Msg("Store error")
	http.Error(w, "internal error", http.StatusInternalServerError)
}
