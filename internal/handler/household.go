package handler

import (
	"log/slog"
	"net/http"

	"lifeplan/internal/domain/services"
	"lifeplan/internal/httputil"
)

// HouseholdHandler handles household HTTP requests
type HouseholdHandler struct {
	service services.HouseholdService
	logger  *slog.Logger
}

// NewHouseholdHandler creates a new household handler
func NewHouseholdHandler(service services.HouseholdService, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{
		service: service,
		logger:  logger,
	}
}

// CreateHousehold creates a household with the caller as admin
// POST /api/households
func (h *HouseholdHandler) CreateHousehold(w http.ResponseWriter, r *http.Request) {
	var req services.CreateHouseholdRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	household, err := h.service.Create(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, household)
}

// AddMember adds or updates a membership
// POST /api/households/{id}/members
func (h *HouseholdHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req services.AddMemberRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	member, err := h.service.AddMember(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, member)
}

// ListMembers lists a household's members
// GET /api/households/{id}/members
func (h *HouseholdHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, members)
}
