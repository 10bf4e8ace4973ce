package handler

import "net/http"

// Handlers groups every HTTP handler served by the API
type Handlers struct {
	Health    *HealthHandler
	Profile   *ProfileHandler
	Vision    *VisionHandler
	Recording *RecordingHandler
	Household *HouseholdHandler
}

// RegisterRoutes wires handlers onto mux using Go 1.22 method patterns
func RegisterRoutes(mux *http.ServeMux, h Handlers) {
	// Health check
	mux.HandleFunc("GET /health", h.Health.HealthCheck)

	// Profile routes
	mux.HandleFunc("GET /api/profile", h.Profile.GetProfile)
	mux.HandleFunc("POST /api/profile", h.Profile.CreateProfile)
	mux.HandleFunc("PUT /api/profile", h.Profile.UpdateProfile)
	mux.HandleFunc("DELETE /api/profile", h.Profile.DeleteProfile)
	mux.HandleFunc("GET /api/profile/versions", h.Profile.ListVersions)
	mux.HandleFunc("POST /api/profile/versions", h.Profile.CreateDraft)
	mux.HandleFunc("PUT /api/profile/versions", h.Profile.CommitDraft)
	mux.HandleFunc("PATCH /api/profile/versions", h.Profile.SetActive)
	mux.HandleFunc("DELETE /api/profile/versions/{id}", h.Profile.DeleteVersion)
	mux.HandleFunc("GET /api/profile/versions/{id}/changes", h.Profile.GetChanges)

	// Vision routes
	mux.HandleFunc("GET /api/vision", h.Vision.GetVisions)
	mux.HandleFunc("POST /api/vision", h.Vision.CreateVision)
	mux.HandleFunc("POST /api/vision/merge", h.Vision.MergeVisions)
	mux.HandleFunc("POST /api/vision/convert-to-household", h.Vision.ConvertToHousehold)
	mux.HandleFunc("PATCH /api/vision/{id}", h.Vision.UpdateVision)
	mux.HandleFunc("POST /api/vision/{id}/draft", h.Vision.CreateDraft)
	mux.HandleFunc("PATCH /api/vision/draft/{id}", h.Vision.RefineCategory)
	mux.HandleFunc("POST /api/vision/draft/{id}/commit", h.Vision.CommitDraft)
	mux.HandleFunc("POST /api/vision/draft/{id}/sync", h.Vision.SyncRefined)
	mux.HandleFunc("DELETE /api/vision/draft/{id}", h.Vision.DiscardDraft)

	// Recording and upload routes
	mux.HandleFunc("POST /api/documents/{id}/recordings", h.Recording.AppendRecording)
	mux.HandleFunc("DELETE /api/documents/{id}/recordings", h.Recording.RemoveRecording)
	mux.HandleFunc("POST /api/uploads", h.Recording.Upload)
	mux.HandleFunc("POST /api/uploads/presign", h.Recording.PresignUpload)

	// Household routes
	mux.HandleFunc("POST /api/households", h.Household.CreateHousehold)
	mux.HandleFunc("POST /api/households/{id}/members", h.Household.AddMember)
	mux.HandleFunc("GET /api/households/{id}/members", h.Household.ListMembers)
}
