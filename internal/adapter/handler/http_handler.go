package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rl1809/locofly/internal/core/domain"
	"github.com/rl1809/locofly/internal/core/service"
	"github.com/rl1809/locofly/internal/logger"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"

	healthTimeFormat = "2006-01-02T15:04:05.000Z07:00"
	readyTimeout     = 2 * time.Second
)

// apiFunc is a handler that reports failures instead of writing them.
type apiFunc func(w http.ResponseWriter, r *http.Request) error

type HTTPHandler struct {
	inventory *service.InventoryService
	now       func() time.Time
}

type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(inventory *service.InventoryService) *HTTPHandler {
	return &HTTPHandler{inventory: inventory, now: time.Now}
}

// handle maps errors returned by fn onto status codes. Anything unrecognised
// is logged and answered with the generic 500 body.
func (h *HTTPHandler) handle(fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		var validationErr *domain.ValidationError
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &validationErr):
			writeError(w, http.StatusBadRequest, validationErr.Message)
		case errors.Is(err, errInvalidBody):
			writeError(w, http.StatusBadRequest, errInvalidBody.Error())
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, domain.ErrItemNotFound):
			writeError(w, http.StatusNotFound, "item not found")
		case errors.Is(err, service.ErrDuplicateRequest):
			writeError(w, http.StatusConflict, "duplicate request")
		default:
			logger.FromContext(r.Context()).Error("Request failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
	}
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   h.now().UTC().Format(healthTimeFormat),
	})
}

// ReadyCheck reports whether the database answers a ping.
func (h *HTTPHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.inventory.Ping(ctx); err != nil {
		logger.FromContext(r.Context()).Warn("Readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *HTTPHandler) CreateLocation(w http.ResponseWriter, r *http.Request) error {
	var req createLocationRequest
	if err := decodeBody(r.Body, &req); err != nil {
		return err
	}

	loc, err := h.inventory.CreateLocation(r.Context(), req.Name)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, loc)
	return nil
}

func (h *HTTPHandler) ListLocations(w http.ResponseWriter, r *http.Request) error {
	locs, err := h.inventory.ListLocations(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, locs)
	return nil
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) error {
	var req addItemRequest
	if err := decodeBody(r.Body, &req); err != nil {
		return err
	}

	item, err := h.inventory.AddItem(r.Context(), domain.NewItem{
		ItemName:   req.ItemName,
		LocationID: req.LocationID.Value,
		Quantity:   req.Quantity.Value,
		Barcode:    req.Barcode,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, item)
	return nil
}

func (h *HTTPHandler) EditItem(w http.ResponseWriter, r *http.Request) error {
	id, ok := parseLeadingInt(chi.URLParam(r, "id"))
	if !ok {
		return domain.ErrItemNotFound
	}

	var req editItemRequest
	if err := decodeBody(r.Body, &req); err != nil {
		return err
	}

	item, err := h.inventory.EditItem(r.Context(), id, domain.ItemPatch{
		ItemName: req.ItemName,
		Barcode:  req.Barcode,
		Quantity: req.Quantity.Ptr(),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, item)
	return nil
}

func (h *HTTPHandler) ListLocationItems(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	locationID, _ := parseLeadingInt(q.Get("location_id"))

	items, err := h.inventory.ListLocationItems(r.Context(), locationID, q.Get("query"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, items)
	return nil
}

func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) error {
	results, err := h.inventory.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, results)
	return nil
}

func (h *HTTPHandler) Adjust(w http.ResponseWriter, r *http.Request) error {
	var req adjustRequest
	if err := decodeBody(r.Body, &req); err != nil {
		return err
	}

	updated, err := h.inventory.Adjust(
		r.Context(),
		req.LocationID.Value,
		parseAdjustments(req.Items),
		r.Header.Get(HeaderIdempotencyKey),
	)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, adjustResponse{Updated: updated})
	return nil
}

// parseAdjustments returns nil unless raw is a non-empty JSON array. Entries
// that are not objects, or hold non-integer numbers, become zero adjustments.
func parseAdjustments(raw json.RawMessage) []domain.Adjustment {
	var entries []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &entries) != nil || len(entries) == 0 {
		return nil
	}

	adjustments := make([]domain.Adjustment, len(entries))
	for i, entry := range entries {
		var item adjustItem
		if json.Unmarshal(entry, &item) != nil {
			continue
		}
		adjustments[i] = domain.Adjustment{ItemID: item.ID.Value, Delta: item.Delta.Value}
	}
	return adjustments
}

func (h *HTTPHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func (h *HTTPHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
