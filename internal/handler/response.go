package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"dejure-gateway/internal/model"
	"dejure-gateway/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    apierror.CodeInternal,
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if fields := fieldErrors(err); fields != nil {
		status = http.StatusBadRequest
		body.Code = apierror.CodeValidation
		body.Message = "Invalid request payload"
		body.Details = joinFields(fields)
	} else if errors.Is(err, model.ErrNoToken) || errors.Is(err, model.ErrSessionNotFound) || errors.Is(err, model.ErrUnauthorized) {
		status = http.StatusUnauthorized
		body.Code = apierror.CodeUnauthorized
		body.Message = "Authentication required"
	} else if errors.Is(err, model.ErrForbidden) {
		status = http.StatusForbidden
		body.Code = apierror.CodeForbidden
		body.Message = "Access denied"
	} else if errors.Is(err, model.ErrUnknownRole) {
		status = http.StatusForbidden
		body.Code = apierror.CodeForbidden
		body.Message = "Unknown role"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = apierror.CodeBadRequest
		body.Message = "Invalid input"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrMalformedProfile) || errors.Is(err, model.ErrUpstreamUnavailable) {
		status = http.StatusBadGateway
		body.Code = apierror.CodeUpstreamError
		body.Message = "Academy backend returned an unusable response"
	} else {
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	if status == 0 {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func joinFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+fields[key])
	}
	return strings.Join(parts, "; ")
}
