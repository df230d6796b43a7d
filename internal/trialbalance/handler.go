package trialbalance

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerloom/ledgerloom/internal/coa"
	"github.com/ledgerloom/ledgerloom/internal/observability"
	"github.com/ledgerloom/ledgerloom/internal/platform/httpx"
)

// defaultUploadsPerMinute caps upload throughput per IP when no limit is
// configured.
const defaultUploadsPerMinute = 10

// Handler wires trial balance upload and mapping endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	metrics   *observability.Metrics
	validator *validator.Validate
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs a Handler instance. Uploads are rate limited per IP
// since each one writes a full version batch.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics, uploadsPerMinute int) *Handler {
	if uploadsPerMinute <= 0 {
		uploadsPerMinute = defaultUploadsPerMinute
	}
	return &Handler{
		logger:    logger,
		service:   service,
		metrics:   metrics,
		validator: validator.New(),
		rateLimit: httprate.Limit(uploadsPerMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
	}
}

// MountRoutes registers routes under /works/{workID}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Post("/{workID}/units/{unitID}/trial-balance", h.handleUpload)
	})
	r.Get("/{workID}/units/{unitID}/versions", h.handleListVersions)
	r.Get("/{workID}/unmapped-entries", h.handleUnmapped)
	r.Post("/{workID}/map-entry", h.handleMapEntry)
}

func param(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (h *Handler) respondErr(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrUnitNotFound), errors.Is(err, ErrEntryNotFound), errors.Is(err, coa.ErrAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrEmptyUpload), errors.Is(err, ErrNotSubHead):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrVersionConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

type uploadRequest struct {
	Rows []struct {
		AccountName string  `json:"account_name" validate:"required"`
		Debit       float64 `json:"debit"`
		Credit      float64 `json:"credit"`
	} `json:"rows" validate:"required,min=1,dive"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	workID, err := param(r, "workID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "work id must be numeric")
		return
	}
	unitID, err := param(r, "unitID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "unit id must be numeric")
		return
	}
	var req uploadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rows := make([]Row, 0, len(req.Rows))
	for _, row := range req.Rows {
		rows = append(rows, Row{AccountName: row.AccountName, Debit: row.Debit, Credit: row.Credit})
	}
	version, err := h.service.Upload(r.Context(), workID, unitID, rows)
	if err != nil {
		h.metrics.RecordUpload("error")
		h.respondErr(w, "upload trial balance", err)
		return
	}
	h.metrics.RecordUpload("success")
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"status":            "success",
		"version":           version,
		"entries_processed": len(rows),
	})
}

func (h *Handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
	workID, err := param(r, "workID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "work id must be numeric")
		return
	}
	unitID, err := param(r, "unitID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "unit id must be numeric")
		return
	}
	infos, err := h.service.ListVersions(r.Context(), workID, unitID)
	if err != nil {
		h.respondErr(w, "list versions", err)
		return
	}
	out := make([]map[string]any, 0, len(infos))
	for _, info := range infos {
		out = append(out, map[string]any{
			"version":     info.Version,
			"row_count":   info.RowCount,
			"uploaded_at": info.UploadedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleUnmapped(w http.ResponseWriter, r *http.Request) {
	workID, err := param(r, "workID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "work id must be numeric")
		return
	}
	entries, err := h.service.UnmappedEntries(r.Context(), workID)
	if err != nil {
		h.respondErr(w, "list unmapped entries", err)
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"id":              e.ID,
			"unit_id":         e.UnitID,
			"version":         e.VersionNumber,
			"account_name":    e.AccountName,
			"debit":           e.Debit,
			"credit":          e.Credit,
			"closing_balance": e.ClosingBalance,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type mapEntryRequest struct {
	EntryID   int64 `json:"trial_balance_entry_id" validate:"required,gt=0"`
	AccountID int64 `json:"account_sub_head_id" validate:"required,gt=0"`
}

func (h *Handler) handleMapEntry(w http.ResponseWriter, r *http.Request) {
	if _, err := param(r, "workID"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "work id must be numeric")
		return
	}
	var req mapEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	mapping, err := h.service.MapEntry(r.Context(), req.EntryID, req.AccountID)
	if err != nil {
		h.respondErr(w, "map entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":     "mapped",
		"mapping_id": mapping.ID,
		"account_id": mapping.AccountID,
	})
}
