package engagement

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerloom/ledgerloom/internal/platform/httpx"
)

// Handler wires engagement lifecycle endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers work routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{workID}", h.handleGet)
	r.Get("/{workID}/units", h.handleListUnits)
	r.Post("/{workID}/units", h.handleAddUnit)
	r.Post("/{workID}/advance", h.handleAdvance)
	r.Post("/{workID}/finalize", h.handleFinalize)
}

func workIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "workID"), 10, 64)
}

func (h *Handler) respondErr(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrWorkNotFound), errors.Is(err, ErrUnitNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidUDIN), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotReadyToFinalize):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrWorkFinalized):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

type workResponse struct {
	ID          int64      `json:"id"`
	CompanyName string     `json:"company_name"`
	StartDate   string     `json:"start_date"`
	EndDate     string     `json:"end_date"`
	Status      WorkStatus `json:"status"`
	UDIN        string     `json:"udin,omitempty"`
	SignedOn    string     `json:"signed_on,omitempty"`
}

func toWorkResponse(w Work) workResponse {
	resp := workResponse{
		ID:          w.ID,
		CompanyName: w.CompanyName,
		StartDate:   w.StartDate.Format("2006-01-02"),
		EndDate:     w.EndDate.Format("2006-01-02"),
		Status:      w.Status,
		UDIN:        w.UDIN,
	}
	if w.SignedOn != nil {
		resp.SignedOn = w.SignedOn.Format("2006-01-02")
	}
	return resp
}

type createWorkRequest struct {
	CompanyName string `json:"company_name" validate:"required"`
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createWorkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)
	work, err := h.service.CreateWork(r.Context(), CreateInput{CompanyName: req.CompanyName, StartDate: start, EndDate: end})
	if err != nil {
		h.respondErr(w, "create work", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toWorkResponse(work))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	workID, err := workIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "work id must be numeric")
		return
	}
	work, err := h.service.GetWork(r.Context(), workID)
	if err != nil {
		h.respondErr(w, "get work", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toWorkResponse(work))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	works, err := h.service.ListWorks(r.Context())
	if err != nil {
		h.respondErr(w, "list works", err)
		return
	}
	out := make([]workResponse, 0, len(works))
	for _, work := range works {
		out = append(out, toWorkResponse(work))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type addUnitRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handler) handleAddUnit(w http.ResponseWriter, r *http.Request) {
	workID, err := workIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "work id must be numeric")
		return
	}
	var req addUnitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	unit, err := h.service.AddUnit(r.Context(), workID, req.Name)
	if err != nil {
		h.respondErr(w, "add unit", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": unit.ID, "work_id": unit.WorkID, "name": unit.Name})
}

func (h *Handler) handleListUnits(w http.ResponseWriter, r *http.Request) {
	workID, err := workIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "work id must be numeric")
		return
	}
	units, err := h.service.ListUnits(r.Context(), workID)
	if err != nil {
		h.respondErr(w, "list units", err)
		return
	}
	out := make([]map[string]any, 0, len(units))
	for _, u := range units {
		out = append(out, map[string]any{"id": u.ID, "work_id": u.WorkID, "name": u.Name})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	workID, err := workIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "work id must be numeric")
		return
	}
	work, err := h.service.Advance(r.Context(), workID)
	if err != nil {
		h.respondErr(w, "advance work", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toWorkResponse(work))
}

type finalizeRequest struct {
	UDIN     string `json:"udin" validate:"required,len=18"`
	SignedOn string `json:"signed_on" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	workID, err := workIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "work id must be numeric")
		return
	}
	var req finalizeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	signedOn, _ := time.Parse("2006-01-02", req.SignedOn)
	work, err := h.service.Finalize(r.Context(), FinalizeInput{WorkID: workID, UDIN: req.UDIN, SignedOn: signedOn})
	if err != nil {
		h.respondErr(w, "finalize work", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toWorkResponse(work))
}
