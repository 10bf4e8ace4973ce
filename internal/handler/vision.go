package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/services"
	"lifeplan/internal/httputil"
)

// VisionHandler handles life vision HTTP requests
type VisionHandler struct {
	store     services.VersionStore
	lifecycle services.DraftLifecycle
	merger    services.MergeEngine
	logger    *slog.Logger
}

// NewVisionHandler creates a new vision handler
func NewVisionHandler(
	store services.VersionStore,
	lifecycle services.DraftLifecycle,
	merger services.MergeEngine,
	logger *slog.Logger,
) *VisionHandler {
	return &VisionHandler{
		store:     store,
		lifecycle: lifecycle,
		merger:    merger,
		logger:    logger,
	}
}

// GetVisions returns one vision by id, or the user's visions
// GET /api/vision[?id=&includeVersions=]
func (h *VisionHandler) GetVisions(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	if id := r.URL.Query().Get("id"); id != "" {
		doc, err := requireKind(r.Context(), h.store, userID, id, models.DocumentKindVision)
		if err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, doc)
		return
	}

	docs, err := h.store.ListByOwner(r.Context(), userID, &services.ListDocumentsRequest{
		Kind:            models.DocumentKindVision,
		IncludeVersions: queryBool(r, "includeVersions"),
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// CreateVision creates a vision
// POST /api/vision
func (h *VisionHandler) CreateVision(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req services.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Kind = models.DocumentKindVision

	doc, err := h.store.Create(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// UpdateVision applies a partial update
// PATCH /api/vision/{id}
func (h *VisionHandler) UpdateVision(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req services.UpdateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.ensureVision(w, r, id) {
		return
	}

	doc, err := h.store.Update(r.Context(), httputil.GetUserID(r), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// MergeVisions merges two personal visions into a household draft
// POST /api/vision/merge
func (h *VisionHandler) MergeVisions(w http.ResponseWriter, r *http.Request) {
	var req services.MergeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := h.merger.Merge(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// ConvertToHousehold copies a personal vision into a household draft
// POST /api/vision/convert-to-household
func (h *VisionHandler) ConvertToHousehold(w http.ResponseWriter, r *http.Request) {
	var req services.ConvertToHouseholdRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := h.merger.ConvertToHousehold(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// CreateDraft starts a draft from a committed vision. The body is optional.
// POST /api/vision/{id}/draft
func (h *VisionHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req services.CreateDraftRequest
	if r.ContentLength != 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if !h.ensureVision(w, r, r.PathValue("id")) {
		return
	}

	doc, err := h.lifecycle.CreateDraft(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

type refineBody struct {
	Category models.FieldKey `json:"category"`
	Value    json.RawMessage `json:"value"`
}

// decode returns the value to set, nil to clear
func (b *refineBody) decode() (*models.FieldValue, error) {
	if b.Category == "" {
		return nil, fmt.Errorf("%w: category is required", domain.ErrValidation)
	}
	raw := bytes.TrimSpace(b.Value)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		if _, ok := models.LookupField(b.Category); !ok {
			return nil, fmt.Errorf("%w: unknown field %q", domain.ErrValidation, b.Category)
		}
		return nil, nil
	}
	v, err := models.DecodeFieldValue(b.Category, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return &v, nil
}

// RefineCategory sets one category of a draft
// PATCH /api/vision/draft/{id}
func (h *VisionHandler) RefineCategory(w http.ResponseWriter, r *http.Request) {
	var body refineBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	value, err := body.decode()
	if err != nil {
		handleError(w, err)
		return
	}
	if !h.ensureVision(w, r, r.PathValue("id")) {
		return
	}

	doc, err := h.lifecycle.RefineCategory(r.Context(), httputil.GetUserID(r), r.PathValue("id"), body.Category, value)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// CommitDraft commits a refined draft
// POST /api/vision/draft/{id}/commit
func (h *VisionHandler) CommitDraft(w http.ResponseWriter, r *http.Request) {
	if !h.ensureVision(w, r, r.PathValue("id")) {
		return
	}
	doc, err := h.lifecycle.Commit(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// SyncRefined recomputes which categories of a draft differ from the
// lineage's active version
// POST /api/vision/draft/{id}/sync
func (h *VisionHandler) SyncRefined(w http.ResponseWriter, r *http.Request) {
	if !h.ensureVision(w, r, r.PathValue("id")) {
		return
	}
	doc, err := h.lifecycle.SyncRefined(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// DiscardDraft deletes a draft
// DELETE /api/vision/draft/{id}
func (h *VisionHandler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	if !h.ensureVision(w, r, r.PathValue("id")) {
		return
	}
	if err := h.lifecycle.DiscardDraft(r.Context(), httputil.GetUserID(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *VisionHandler) ensureVision(w http.ResponseWriter, r *http.Request, id string) bool {
	if _, err := requireKind(r.Context(), h.store, httputil.GetUserID(r), id, models.DocumentKindVision); err != nil {
		handleError(w, err)
		return false
	}
	return true
}
