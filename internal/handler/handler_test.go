package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lifeplan/internal/blobstore"
	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/handler"
	"lifeplan/internal/httputil"
	"lifeplan/internal/lock"
	"lifeplan/internal/repository/sqlite"
	"lifeplan/internal/scoring"
	"lifeplan/internal/service/auth"
	"lifeplan/internal/service/households"
	"lifeplan/internal/service/versions"
)

type fakeBlobs struct{}

func (fakeBlobs) Upload(_ context.Context, folder blobstore.Folder, owner, name, contentType string, _ io.Reader, size int64) (string, string, error) {
	if err := blobstore.Validate(folder, contentType, size); err != nil {
		return "", "", err
	}
	key := blobstore.ObjectKey(owner, folder, name, time.Unix(0, 0), "test")
	return "https://media.example.com/" + key, key, nil
}

func (fakeBlobs) Delete(context.Context, string) error { return nil }

func (fakeBlobs) KeyFromURL(url string) (string, error) {
	key, ok := strings.CutPrefix(url, "https://media.example.com/")
	if !ok {
		return "", domain.ErrValidation
	}
	return key, nil
}

func (fakeBlobs) PresignUpload(_ context.Context, folder blobstore.Folder, owner, name, contentType string) (*blobstore.PresignedUpload, error) {
	if err := blobstore.Validate(folder, contentType, 0); err != nil {
		return nil, err
	}
	key := blobstore.ObjectKey(owner, folder, name, time.Unix(0, 0), "test")
	return &blobstore.PresignedUpload{UploadURL: "https://s3.example.com/" + key, Key: key}, nil
}

type apiClient struct {
	t   *testing.T
	srv http.Handler
}

func setupAPI(t *testing.T, checks map[string]handler.HealthCheck) *apiClient {
	t.Helper()

	db, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &sqlite.RepositoryConfig{DB: db, Logger: logger}
	docRepo := sqlite.NewDocumentRepository(cfg)
	householdRepo := sqlite.NewHouseholdRepository(cfg)
	txManager := sqlite.NewTransactionManager(cfg)
	authorizer := auth.NewMembershipAuthorizer(householdRepo)

	scores, err := scoring.NewRegistry()
	if err != nil {
		t.Fatalf("failed to load rulesets: %v", err)
	}

	svc := versions.NewService(versions.Dependencies{
		DocumentRepo:  docRepo,
		HouseholdRepo: householdRepo,
		TxManager:     txManager,
		Locker:        lock.NewLocalLocker(lock.Options{}),
		Authorizer:    authorizer,
		Scores:        scores,
		Blobs:         fakeBlobs{},
		Logger:        logger,
	})
	householdSvc := households.NewService(householdRepo, txManager, authorizer, logger)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Handlers{
		Health:    handler.NewHealthHandler(checks, logger),
		Profile:   handler.NewProfileHandler(svc, svc, logger),
		Vision:    handler.NewVisionHandler(svc, svc, svc, logger),
		Recording: handler.NewRecordingHandler(svc, fakeBlobs{}, logger),
		Household: handler.NewHouseholdHandler(householdSvc, logger),
	})

	// Stands in for the auth middleware
	withUser := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, httputil.WithUserID(r, r.Header.Get("X-Test-User")))
	})
	return &apiClient{t: t, srv: withUser}
}

func (c *apiClient) do(user, method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Test-User", user)
	rec := httptest.NewRecorder()
	c.srv.ServeHTTP(rec, req)
	return rec
}

func (c *apiClient) expect(rec *httptest.ResponseRecorder, status int) {
	c.t.Helper()
	if rec.Code != status {
		c.t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
}

func decodeDoc(t *testing.T, rec *httptest.ResponseRecorder) models.Document {
	t.Helper()
	var doc models.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("failed to decode document: %v", err)
	}
	return doc
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("expected problem json, got %q", ct)
	}
	var problem map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to decode problem: %v", err)
	}
	return problem
}

func TestProfileVersionsFlow(t *testing.T) {
	api := setupAPI(t, nil)

	rec := api.do("alice", http.MethodPost, "/api/profile", map[string]any{
		"fields": map[string]any{"occupation": "Nurse", "has_children": false},
	})
	api.expect(rec, http.StatusCreated)
	root := decodeDoc(t, rec)
	if root.Kind != models.DocumentKindProfile || !root.IsActive {
		t.Fatalf("expected active profile, got kind=%s active=%v", root.Kind, root.IsActive)
	}

	rec = api.do("alice", http.MethodGet, "/api/profile", nil)
	api.expect(rec, http.StatusOK)
	if got := decodeDoc(t, rec); got.ID != root.ID {
		t.Errorf("expected active profile %s, got %s", root.ID, got.ID)
	}

	rec = api.do("alice", http.MethodPost, "/api/profile/versions", map[string]any{"source_id": root.ID})
	api.expect(rec, http.StatusCreated)
	draft := decodeDoc(t, rec)

	rec = api.do("alice", http.MethodPost, "/api/profile/versions", map[string]any{"source_id": root.ID})
	api.expect(rec, http.StatusConflict)
	if problem := decodeProblem(t, rec); problem["resource_id"] != draft.ID {
		t.Errorf("expected resource_id %s, got %v", draft.ID, problem["resource_id"])
	}

	rec = api.do("alice", http.MethodPut, "/api/profile/versions", map[string]any{"draft_id": draft.ID})
	api.expect(rec, http.StatusBadRequest)
	if problem := decodeProblem(t, rec); problem["code"] != "nothing_to_commit" {
		t.Errorf("expected nothing_to_commit, got %v", problem["code"])
	}

	rec = api.do("alice", http.MethodPut, "/api/profile?profileId="+draft.ID, map[string]any{
		"fields": map[string]any{"occupation": "Surgeon"},
	})
	api.expect(rec, http.StatusOK)

	rec = api.do("alice", http.MethodGet, "/api/profile/versions/"+draft.ID+"/changes", nil)
	api.expect(rec, http.StatusOK)
	var summary models.ChangeSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to decode changes: %v", err)
	}
	if len(summary.ChangedFields) != 1 || summary.ChangedFields[0] != "occupation" {
		t.Errorf("expected [occupation], got %v", summary.ChangedFields)
	}

	rec = api.do("alice", http.MethodPut, "/api/profile/versions", map[string]any{"draft_id": draft.ID})
	api.expect(rec, http.StatusOK)
	if committed := decodeDoc(t, rec); !committed.IsActive || committed.VersionNumber != 2 {
		t.Errorf("expected active version 2, got active=%v version=%d", committed.IsActive, committed.VersionNumber)
	}

	rec = api.do("alice", http.MethodGet, "/api/profile/versions", nil)
	api.expect(rec, http.StatusOK)
	var list []models.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 versions, got %d", len(list))
	}

	rec = api.do("alice", http.MethodPatch, "/api/profile/versions", map[string]any{"version_id": root.ID})
	api.expect(rec, http.StatusOK)

	rec = api.do("alice", http.MethodDelete, "/api/profile?profileId="+root.ID, nil)
	api.expect(rec, http.StatusBadRequest)
	if problem := decodeProblem(t, rec); problem["code"] != "confirm_required" {
		t.Errorf("expected confirm_required, got %v", problem["code"])
	}

	rec = api.do("alice", http.MethodDelete, "/api/profile/versions/"+root.ID+"?confirm=true", nil)
	api.expect(rec, http.StatusNoContent)
}

func TestVisionDraftFlow(t *testing.T) {
	api := setupAPI(t, nil)

	rec := api.do("alice", http.MethodPost, "/api/vision", map[string]any{
		"fields": map[string]any{"fun": "Sailing"},
	})
	api.expect(rec, http.StatusCreated)
	root := decodeDoc(t, rec)

	rec = api.do("alice", http.MethodPost, "/api/vision/"+root.ID+"/draft", nil)
	api.expect(rec, http.StatusCreated)
	draft := decodeDoc(t, rec)

	rec = api.do("alice", http.MethodPatch, "/api/vision/draft/"+draft.ID, map[string]any{
		"category": "health",
		"value":    "Daily walks",
	})
	api.expect(rec, http.StatusOK)
	if refined := decodeDoc(t, rec); !refined.IsRefined("health") {
		t.Errorf("expected health refined, got %v", refined.RefinedCategories)
	}

	rec = api.do("alice", http.MethodPatch, "/api/vision/draft/"+draft.ID, map[string]any{
		"category": "nonsense",
		"value":    "x",
	})
	api.expect(rec, http.StatusBadRequest)

	rec = api.do("alice", http.MethodPost, "/api/vision/draft/"+draft.ID+"/sync", nil)
	api.expect(rec, http.StatusOK)
	if synced := decodeDoc(t, rec); len(synced.RefinedCategories) != 1 || !synced.IsRefined("health") {
		t.Errorf("expected only health refined after sync, got %v", synced.RefinedCategories)
	}

	rec = api.do("alice", http.MethodPost, "/api/vision/draft/"+draft.ID+"/commit", nil)
	api.expect(rec, http.StatusOK)

	rec = api.do("alice", http.MethodDelete, "/api/vision/draft/"+draft.ID, nil)
	api.expect(rec, http.StatusBadRequest)

	rec = api.do("alice", http.MethodGet, "/api/vision?includeVersions=true", nil)
	api.expect(rec, http.StatusOK)
	var list []models.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 versions, got %d", len(list))
	}

	rec = api.do("alice", http.MethodGet, "/api/vision", nil)
	api.expect(rec, http.StatusOK)
	list = nil
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 1 || list[0].ID != draft.ID {
		t.Errorf("expected only the active vision without versions, got %d", len(list))
	}
}

func TestErrorMapping(t *testing.T) {
	api := setupAPI(t, nil)

	rec := api.do("alice", http.MethodPost, "/api/vision", map[string]any{})
	api.expect(rec, http.StatusCreated)
	doc := decodeDoc(t, rec)

	tests := []struct {
		name   string
		user   string
		method string
		path   string
		body   any
		status int
	}{
		{"forbidden", "mallory", http.MethodGet, "/api/vision?id=" + doc.ID, nil, http.StatusForbidden},
		{"not found", "alice", http.MethodGet, "/api/vision?id=00000000-0000-0000-0000-000000000000", nil, http.StatusNotFound},
		{"no active profile", "alice", http.MethodGet, "/api/profile", nil, http.StatusNotFound},
		{"unknown field", "alice", http.MethodPost, "/api/vision", map[string]any{"fields": map[string]any{"bogus": "x"}}, http.StatusBadRequest},
		{"missing profile id", "alice", http.MethodPut, "/api/profile", map[string]any{}, http.StatusBadRequest},
		{"stale revision", "alice", http.MethodPatch, "/api/vision/" + doc.ID, map[string]any{
			"fields":            map[string]any{"fun": "x"},
			"expected_revision": 99,
		}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(tt.user, tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/vision", strings.NewReader("{not json"))
	req.Header.Set("X-Test-User", "alice")
	bad := httptest.NewRecorder()
	api.srv.ServeHTTP(bad, req)
	if bad.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", bad.Code)
	}
}

func TestKindMismatchIsNotFound(t *testing.T) {
	api := setupAPI(t, nil)

	vision := decodeDoc(t, api.do("alice", http.MethodPost, "/api/vision", map[string]any{}))
	rec := api.do("alice", http.MethodPost, "/api/vision/"+vision.ID+"/draft", nil)
	api.expect(rec, http.StatusCreated)
	visionDraft := decodeDoc(t, rec)

	rec = api.do("alice", http.MethodPost, "/api/profile", map[string]any{})
	api.expect(rec, http.StatusCreated)
	profile := decodeDoc(t, rec)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"get profile by vision id", http.MethodGet, "/api/profile?profileId=" + vision.ID, nil},
		{"update profile by vision id", http.MethodPut, "/api/profile?profileId=" + vision.ID, map[string]any{}},
		{"draft from vision", http.MethodPost, "/api/profile/versions", map[string]any{"source_id": vision.ID}},
		{"commit vision draft", http.MethodPut, "/api/profile/versions", map[string]any{"draft_id": visionDraft.ID}},
		{"activate vision", http.MethodPatch, "/api/profile/versions", map[string]any{"version_id": vision.ID}},
		{"vision changes", http.MethodGet, "/api/profile/versions/" + vision.ID + "/changes", nil},
		{"delete vision", http.MethodDelete, "/api/profile/versions/" + visionDraft.ID, nil},
		{"get vision by profile id", http.MethodGet, "/api/vision?id=" + profile.ID, nil},
		{"commit profile through vision path", http.MethodPost, "/api/vision/draft/" + profile.ID + "/commit", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do("alice", tt.method, tt.path, tt.body)
			if rec.Code != http.StatusNotFound {
				t.Errorf("expected 404, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}

	// The draft survived the rejected delete
	rec = api.do("alice", http.MethodGet, "/api/vision?id="+visionDraft.ID, nil)
	api.expect(rec, http.StatusOK)
}

func TestHouseholdMergeFlow(t *testing.T) {
	api := setupAPI(t, nil)

	rec := api.do("alice", http.MethodPost, "/api/households", map[string]any{"name": "Home", "display_name": "Alice"})
	api.expect(rec, http.StatusCreated)
	var household models.Household
	json.Unmarshal(rec.Body.Bytes(), &household)

	rec = api.do("alice", http.MethodPost, "/api/households/"+household.ID+"/members", map[string]any{
		"user_id":      "bob",
		"display_name": "Bob",
	})
	api.expect(rec, http.StatusOK)

	rec = api.do("bob", http.MethodPost, "/api/households/"+household.ID+"/members", map[string]any{"user_id": "carol"})
	api.expect(rec, http.StatusForbidden)

	rec = api.do("bob", http.MethodGet, "/api/households/"+household.ID+"/members", nil)
	api.expect(rec, http.StatusOK)

	a := decodeDoc(t, api.do("alice", http.MethodPost, "/api/vision", map[string]any{"fields": map[string]any{"home": "Cabin"}}))
	b := decodeDoc(t, api.do("bob", http.MethodPost, "/api/vision", map[string]any{"fields": map[string]any{"home": "Loft"}}))

	rec = api.do("alice", http.MethodPost, "/api/vision/merge", map[string]any{
		"version_a":    a.ID,
		"version_b":    b.ID,
		"household_id": household.ID,
	})
	api.expect(rec, http.StatusCreated)
	merged := decodeDoc(t, rec)
	if got := merged.Fields["home"].Text(); got != "Alice:\nCabin\n\nBob:\nLoft" {
		t.Errorf("unexpected merged home: %q", got)
	}

	rec = api.do("alice", http.MethodPost, "/api/vision/convert-to-household", map[string]any{
		"source_id":    a.ID,
		"household_id": household.ID,
	})
	api.expect(rec, http.StatusCreated)
}

func TestRecordingsAndUploads(t *testing.T) {
	api := setupAPI(t, nil)
	doc := decodeDoc(t, api.do("alice", http.MethodPost, "/api/vision", map[string]any{}))

	rec := api.do("alice", http.MethodPost, "/api/documents/"+doc.ID+"/recordings", map[string]any{
		"recording": map[string]any{
			"url":        "https://media.example.com/user-uploads/alice/life-vision/1.webm",
			"transcript": "We travel",
			"media_type": "audio",
			"category":   "travel",
		},
		"purpose": "withFile",
	})
	api.expect(rec, http.StatusCreated)
	if got := decodeDoc(t, rec); len(got.Recordings) != 1 {
		t.Fatalf("expected one recording, got %d", len(got.Recordings))
	}

	mine := decodeDoc(t, api.do("mallory", http.MethodPost, "/api/vision", map[string]any{}))
	rec = api.do("mallory", http.MethodPost, "/api/documents/"+mine.ID+"/recordings", map[string]any{
		"recording": map[string]any{
			"url":        "https://media.example.com/user-uploads/alice/life-vision/1.webm",
			"media_type": "audio",
		},
		"purpose": "quick",
	})
	api.expect(rec, http.StatusForbidden)

	rec = api.do("alice", http.MethodDelete, "/api/documents/"+doc.ID+"/recordings", map[string]any{
		"category": "travel",
		"index":    0,
	})
	api.expect(rec, http.StatusOK)
	if got := decodeDoc(t, rec); len(got.Recordings) != 0 {
		t.Errorf("expected empty ledger, got %d", len(got.Recordings))
	}

	rec = api.do("alice", http.MethodPost, "/api/uploads/presign", map[string]any{
		"folder":       "journal",
		"file_name":    "Note 1.webm",
		"content_type": "video/webm",
	})
	api.expect(rec, http.StatusOK)
	var upload blobstore.PresignedUpload
	json.Unmarshal(rec.Body.Bytes(), &upload)
	if !strings.HasPrefix(upload.Key, "user-uploads/alice/journal/") {
		t.Errorf("unexpected key %q", upload.Key)
	}

	rec = api.do("alice", http.MethodPost, "/api/uploads/presign", map[string]any{
		"folder":       "avatar",
		"file_name":    "me.gif",
		"content_type": "image/gif",
	})
	api.expect(rec, http.StatusBadRequest)
}

func TestHealthCheck(t *testing.T) {
	api := setupAPI(t, map[string]handler.HealthCheck{
		"database": func(context.Context) error { return nil },
	})
	rec := api.do("", http.MethodGet, "/health", nil)
	api.expect(rec, http.StatusOK)

	api = setupAPI(t, map[string]handler.HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	rec = api.do("", http.MethodGet, "/health", nil)
	api.expect(rec, http.StatusServiceUnavailable)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Status != "degraded" || body.Checks["redis"] != "unavailable" || body.Checks["database"] != "ok" {
		t.Errorf("unexpected health body: %+v", body)
	}
}
