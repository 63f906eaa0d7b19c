package httpapi

import (
	"net/http"

	"fieldops/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// FormHandler form definition endpoints.
type FormHandler struct {
	formService service.FormService
	logger      *zap.Logger
}

func NewFormHandler(formService service.FormService, logger *zap.Logger) *FormHandler {
	return &FormHandler{formService: formService, logger: logger}
}

func (h *FormHandler) ListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := h.formService.ListForms(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, forms)
}

func (h *FormHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	f, err := h.formService.GetForm(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *FormHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	var req service.SaveFormRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	req.FormID = ""
	f, err := h.formService.CreateForm(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *FormHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	var req service.SaveFormRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	req.FormID = mux.Vars(r)["id"]
	f, err := h.formService.UpdateForm(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *FormHandler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	if err := h.formService.DeleteForm(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
