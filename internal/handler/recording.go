package handler

import (
	"log/slog"
	"net/http"

	"lifeplan/internal/blobstore"
	"lifeplan/internal/domain/services"
	"lifeplan/internal/httputil"
)

// RecordingHandler handles recording ledger and upload HTTP requests
type RecordingHandler struct {
	ledger services.RecordingLedger
	blobs  blobstore.Store
	logger *slog.Logger
}

// NewRecordingHandler creates a new recording handler
func NewRecordingHandler(ledger services.RecordingLedger, blobs blobstore.Store, logger *slog.Logger) *RecordingHandler {
	return &RecordingHandler{
		ledger: ledger,
		blobs:  blobs,
		logger: logger,
	}
}

// AppendRecording adds a recording to a document
// POST /api/documents/{id}/recordings
func (h *RecordingHandler) AppendRecording(w http.ResponseWriter, r *http.Request) {
	var req services.AppendRecordingRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := h.ledger.AppendRecording(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// RemoveRecording deletes a recording and its blob
// DELETE /api/documents/{id}/recordings
func (h *RecordingHandler) RemoveRecording(w http.ResponseWriter, r *http.Request) {
	var req services.RemoveRecordingRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := h.ledger.RemoveRecording(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

type presignBody struct {
	Folder      blobstore.Folder `json:"folder"`
	FileName    string           `json:"file_name"`
	ContentType string           `json:"content_type"`
}

// PresignUpload returns a direct upload URL
// POST /api/uploads/presign
func (h *RecordingHandler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	var body presignBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.FileName == "" {
		httputil.RespondError(w, http.StatusBadRequest, "file_name is required")
		return
	}

	upload, err := h.blobs.PresignUpload(r.Context(), body.Folder, httputil.GetUserID(r), body.FileName, body.ContentType)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, upload)
}

// maxUploadSize is the largest per-folder limit plus form overhead
const maxUploadSize = 501 << 20

// Upload stores a multipart file through the server
// POST /api/uploads (multipart: folder, file)
func (h *RecordingHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	folder := blobstore.Folder(r.FormValue("folder"))
	url, key, err := h.blobs.Upload(r.Context(), folder, httputil.GetUserID(r), header.Filename,
		header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, map[string]string{
		"url": url,
		"key": key,
	})
}
