package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/services"
	"lifeplan/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var conflictErr *domain.ConflictError
	var stateErr *domain.InvalidStateError

	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &stateErr):
		httputil.RespondErrorWithExtras(w, http.StatusBadRequest, stateErr.Error(), map[string]interface{}{
			"code": stateErr.Code,
		})
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflictErr):
		extras := map[string]interface{}{}
		if conflictErr.ResourceType != "" {
			extras["resource_type"] = conflictErr.ResourceType
		}
		if conflictErr.ResourceID != "" {
			extras["resource_id"] = conflictErr.ResourceID
		}
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(), extras)
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// queryBool reads a boolean query parameter, false when absent or malformed
func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

// requireKind loads id and reports not found when it is a document of
// another kind, so each resource path only reaches its own documents
func requireKind(ctx context.Context, store services.VersionStore, userID, id string, kind models.DocumentKind) (*models.Document, error) {
	doc, err := store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if doc.Kind != kind {
		return nil, fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return doc, nil
}
