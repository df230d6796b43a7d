package coa

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerloom/ledgerloom/internal/platform/httpx"
)

// Handler wires chart of accounts endpoints.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	importer  *Importer
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository, importer *Importer) *Handler {
	return &Handler{logger: logger, repo: repo, importer: importer, validator: validator.New()}
}

// MountRoutes registers account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Post("/bulk-upload", h.handleBulkUpload)
}

type bulkUploadRequest struct {
	Columns []string `json:"columns" validate:"required,min=1"`
	Rows    []struct {
		Category string `json:"category"`
		Head     string `json:"head"`
		SubHead  string `json:"sub_head"`
	} `json:"rows" validate:"required,min=1"`
}

type accountResponse struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Type         AccountType  `json:"type"`
	CategoryType CategoryType `json:"category_type"`
	ParentID     *int64       `json:"parent_id,omitempty"`
}

func toAccountResponse(a Account) accountResponse {
	return accountResponse{ID: a.ID, Name: a.Name, Type: a.Type, CategoryType: a.CategoryType, ParentID: a.ParentID}
}

func (h *Handler) handleBulkUpload(w http.ResponseWriter, r *http.Request) {
	var req bulkUploadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := ValidateColumns(req.Columns); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rows := make([]ImportRow, 0, len(req.Rows))
	for _, row := range req.Rows {
		rows = append(rows, ImportRow{Category: row.Category, Head: row.Head, SubHead: row.SubHead})
	}
	result, err := h.importer.Import(r.Context(), rows)
	if err != nil {
		h.logger.Error("bulk import accounts", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Import Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":              "success",
		"sub_heads_processed": result.SubHeadsProcessed,
	})
}

type createAccountRequest struct {
	Name         string `json:"name" validate:"required"`
	Type         string `json:"type" validate:"required,oneof=CATEGORY HEAD SUB_HEAD"`
	CategoryType string `json:"category_type" validate:"required,oneof=ASSET LIABILITY EQUITY INCOME EXPENSE"`
	ParentID     *int64 `json:"parent_id"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.repo.CreateAccount(r.Context(), Account{
		Name:         req.Name,
		Type:         AccountType(req.Type),
		CategoryType: CategoryType(req.CategoryType),
		ParentID:     req.ParentID,
	})
	if err != nil {
		if errors.Is(err, ErrParentNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("create account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.repo.ListAccounts(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}
