package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromUpstream(t *testing.T) {
	assert.Equal(t, CodeUnauthorized, FromUpstream(http.StatusUnauthorized, "jwt expired", "").Code)
	assert.Equal(t, CodeForbidden, FromUpstream(http.StatusForbidden, "", "").Code)

	rejected := FromUpstream(http.StatusUnprocessableEntity, "", "")
	assert.Equal(t, CodeUpstreamRejected, rejected.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, rejected.HTTPStatus)
	assert.Equal(t, "Unprocessable Entity", rejected.Message)

	for _, status := range []int{http.StatusInternalServerError, http.StatusOK, http.StatusFound} {
		assert.Equal(t, http.StatusBadGateway, FromUpstream(status, "x", "").HTTPStatus, status)
	}
}

func TestStatusOf(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", New(CodeValidation, "bad", "", http.StatusBadRequest))
	assert.Equal(t, http.StatusBadRequest, StatusOf(wrapped))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(&APIError{Code: CodeInternal}))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "FORBIDDEN: no (courses)", New(CodeForbidden, "no", "courses", 403).Error())
	var nilErr *APIError
	assert.Equal(t, "", nilErr.Error())
}
