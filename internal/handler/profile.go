package handler

import (
	"log/slog"
	"net/http"

	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/services"
	"lifeplan/internal/httputil"
)

// ProfileHandler handles profile HTTP requests
type ProfileHandler struct {
	store     services.VersionStore
	lifecycle services.DraftLifecycle
	logger    *slog.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(store services.VersionStore, lifecycle services.DraftLifecycle, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		store:     store,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// GetProfile returns one profile version, or the user's active profile
// GET /api/profile[?profileId=]
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var (
		doc *models.Document
		err error
	)
	if id := r.URL.Query().Get("profileId"); id != "" {
		doc, err = requireKind(r.Context(), h.store, userID, id, models.DocumentKindProfile)
	} else {
		doc, err = h.store.GetActive(r.Context(), userID, models.DocumentKindProfile)
	}
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// CreateProfile creates a profile
// POST /api/profile
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req services.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Kind = models.DocumentKindProfile

	doc, err := h.store.Create(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// UpdateProfile applies a partial update
// PUT /api/profile?profileId=
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	id := r.URL.Query().Get("profileId")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "profileId is required")
		return
	}

	var req services.UpdateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.ensureProfile(w, r, id) {
		return
	}

	doc, err := h.store.Update(r.Context(), userID, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// DeleteProfile deletes one profile version
// DELETE /api/profile?profileId=[&confirm=true]
func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("profileId")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "profileId is required")
		return
	}
	h.deleteVersion(w, r, id)
}

// ListVersions lists every profile version the user can see
// GET /api/profile/versions
func (h *ProfileHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	docs, err := h.store.ListByOwner(r.Context(), userID, &services.ListDocumentsRequest{
		Kind:            models.DocumentKindProfile,
		IncludeVersions: true,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

type createDraftBody struct {
	SourceID     string `json:"source_id"`
	Replace      bool   `json:"replace"`
	VersionNotes string `json:"version_notes"`
}

// CreateDraft starts a draft from a committed profile version
// POST /api/profile/versions
func (h *ProfileHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var body createDraftBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.SourceID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "source_id is required")
		return
	}
	if !h.ensureProfile(w, r, body.SourceID) {
		return
	}

	doc, err := h.lifecycle.CreateDraft(r.Context(), userID, body.SourceID, &services.CreateDraftRequest{
		Replace:      body.Replace,
		VersionNotes: body.VersionNotes,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

type versionBody struct {
	DraftID   string `json:"draft_id"`
	VersionID string `json:"version_id"`
}

// CommitDraft commits a refined draft
// PUT /api/profile/versions
func (h *ProfileHandler) CommitDraft(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var body versionBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.DraftID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "draft_id is required")
		return
	}
	if !h.ensureProfile(w, r, body.DraftID) {
		return
	}

	doc, err := h.lifecycle.Commit(r.Context(), userID, body.DraftID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// SetActive restores a historical version
// PATCH /api/profile/versions
func (h *ProfileHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var body versionBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.VersionID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "version_id is required")
		return
	}
	if !h.ensureProfile(w, r, body.VersionID) {
		return
	}

	doc, err := h.lifecycle.SetActive(r.Context(), userID, body.VersionID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// DeleteVersion deletes one version by path id
// DELETE /api/profile/versions/{id}[?confirm=true]
func (h *ProfileHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Version ID is required")
		return
	}
	h.deleteVersion(w, r, id)
}

func (h *ProfileHandler) deleteVersion(w http.ResponseWriter, r *http.Request, id string) {
	userID := httputil.GetUserID(r)
	if !h.ensureProfile(w, r, id) {
		return
	}

	err := h.store.Delete(r.Context(), userID, id, &services.DeleteDocumentRequest{
		ConfirmActive: queryBool(r, "confirm"),
	})
	if err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetChanges diffs a version against its parent
// GET /api/profile/versions/{id}/changes
func (h *ProfileHandler) GetChanges(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Version ID is required")
		return
	}
	if !h.ensureProfile(w, r, id) {
		return
	}

	summary, err := h.store.Changes(r.Context(), httputil.GetUserID(r), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, summary)
}

// ensureProfile writes the error response and returns false unless id is a
// profile version the user can read
func (h *ProfileHandler) ensureProfile(w http.ResponseWriter, r *http.Request, id string) bool {
	if _, err := requireKind(r.Context(), h.store, httputil.GetUserID(r), id, models.DocumentKindProfile); err != nil {
		handleError(w, err)
		return false
	}
	return true
}
