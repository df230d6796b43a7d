package statement

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerloom/ledgerloom/internal/observability"
	"github.com/ledgerloom/ledgerloom/internal/platform/httpx"
)

// Handler wires statement generation, validation and template endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	store     *Repository
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, store *Repository, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, store: store, metrics: metrics, validator: validator.New()}
}

// MountWorkRoutes registers the work-scoped routes under /works/{workID}.
func (h *Handler) MountWorkRoutes(r chi.Router) {
	r.Get("/{workID}/statements/{templateID}", h.handleGenerate)
	r.Get("/{workID}/validate", h.handleValidate)
	r.Put("/{workID}/notes", h.handleSaveNotes)
}

// MountTemplateRoutes registers the template catalogue routes.
func (h *Handler) MountTemplateRoutes(r chi.Router) {
	r.Get("/", h.handleListTemplates)
	r.Post("/", h.handleCreateTemplate)
	r.Get("/{templateID}", h.handleGetTemplate)
}

func param(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (h *Handler) respondErr(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrTemplateNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrCyclicAccounts):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Account Hierarchy", err.Error())
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

// statementRow is one rendered line of the response body.
type statementRow struct {
	Type       string  `json:"type"`
	Text       string  `json:"text,omitempty"`
	Label      string  `json:"label,omitempty"`
	Amount     float64 `json:"amount,omitempty"`
	NoteNumber int     `json:"note_number,omitempty"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	workID, err := param(r, "workID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "work id must be numeric")
		return
	}
	templateID, err := param(r, "templateID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "template id must be numeric")
		return
	}
	out, err := h.service.Generate(r.Context(), workID, templateID)
	if err != nil {
		h.respondErr(w, "generate statement", err)
		return
	}
	h.metrics.RecordStatement()

	rows := make([]statementRow, 0, len(out.Blocks))
	for _, block := range out.Blocks {
		switch block.Kind {
		case BlockHeader, BlockTitle:
			rows = append(rows, statementRow{Type: string(block.Kind), Text: block.Text})
		case BlockLineItem:
			value := out.Balances[block.AccountHeadID]
			if !Renderable(value, block.Mandatory) {
				continue
			}
			rows = append(rows, statementRow{
				Type:       string(block.Kind),
				Label:      block.Label,
				Amount:     value,
				NoteNumber: out.NoteNumberByRef[block.NoteRef],
			})
		case BlockSubtotal:
			value := out.Balances[block.SubtotalID]
			if !Renderable(value, block.Mandatory) {
				continue
			}
			rows = append(rows, statementRow{Type: string(block.Kind), Label: block.Label, Amount: value})
		}
	}

	notes := make([]map[string]any, 0, len(out.Notes))
	for _, note := range out.Notes {
		children := make([]map[string]any, 0, len(note.Children))
		for _, child := range note.Children {
			children = append(children, map[string]any{"name": child.Name, "amount": child.Amount})
		}
		notes = append(notes, map[string]any{
			"number":   note.Number,
			"label":    note.Label,
			"children": children,
			"total":    note.Total,
			"text":     note.Text,
		})
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"rows":  rows,
		"notes": notes,
	})
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	workID, err := param(r, "workID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "work id must be numeric")
		return
	}
	v, err := h.service.Validate(r.Context(), workID)
	if err != nil {
		h.respondErr(w, "validate statement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"trial_balance": map[string]any{
			"total_debit":  v.TrialBalance.TotalDebit,
			"total_credit": v.TrialBalance.TotalCredit,
			"difference":   v.TrialBalance.Difference,
		},
		"balance_sheet": map[string]any{
			"total_assets":                 v.BalanceSheet.TotalAssets,
			"total_equity_and_liabilities": v.BalanceSheet.TotalEquityAndLiabilities,
			"difference":                   v.BalanceSheet.Difference,
		},
	})
}

type saveNotesRequest struct {
	Notes map[string]string `json:"notes" validate:"required"`
}

func (h *Handler) handleSaveNotes(w http.ResponseWriter, r *http.Request) {
	workID, err := param(r, "workID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "work id must be numeric")
		return
	}
	var req saveNotesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.store.SaveManualNotes(r.Context(), workID, req.Notes); err != nil {
		h.respondErr(w, "save manual notes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "saved"})
}

type createTemplateRequest struct {
	Name          string          `json:"name" validate:"required"`
	StatementType string          `json:"statement_type" validate:"required,oneof=balance_sheet income_statement cash_flow"`
	Definition    json.RawMessage `json:"definition" validate:"required"`
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	// Reject malformed definitions before they are stored.
	if _, err := ParseTemplate(req.Definition); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Template", err.Error())
		return
	}
	created, err := h.store.CreateTemplate(r.Context(), Template{
		Name:          req.Name,
		StatementType: req.StatementType,
		Definition:    req.Definition,
	})
	if err != nil {
		h.respondErr(w, "create template", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":             created.ID,
		"name":           created.Name,
		"statement_type": created.StatementType,
	})
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListTemplates(r.Context())
	if err != nil {
		h.respondErr(w, "list templates", err)
		return
	}
	out := make([]map[string]any, 0, len(templates))
	for _, t := range templates {
		out = append(out, map[string]any{
			"id":             t.ID,
			"name":           t.Name,
			"statement_type": t.StatementType,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, err := param(r, "templateID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "template id must be numeric")
		return
	}
	t, err := h.store.GetTemplate(r.Context(), templateID)
	if err != nil {
		h.respondErr(w, "get template", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":             t.ID,
		"name":           t.Name,
		"statement_type": t.StatementType,
		"definition":     json.RawMessage(t.Definition),
	})
}
