package httpapi

import (
	"net/http"

	"fieldops/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// UnitHandler unit hierarchy endpoints.
type UnitHandler struct {
	unitService service.UnitService
	logger      *zap.Logger
}

func NewUnitHandler(unitService service.UnitService, logger *zap.Logger) *UnitHandler {
	return &UnitHandler{unitService: unitService, logger: logger}
}

func (h *UnitHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.unitService.ListUnits(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}

func (h *UnitHandler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.unitService.Tree(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *UnitHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	u, err := h.unitService.GetUnit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UnitHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUnitRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	u, err := h.unitService.CreateUnit(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// UpdateUnit a null or empty parent_id with clear_parent=true makes the unit a root.
func (h *UnitHandler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateUnitRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	req.UnitID = mux.Vars(r)["id"]
	u, err := h.unitService.UpdateUnit(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UnitHandler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	resp, err := h.unitService.DeleteUnit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
