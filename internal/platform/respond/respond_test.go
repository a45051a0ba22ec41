package respond

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pet-wellness/internal/platform/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_UsesTaxonomyStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, apperr.Persistence("put profile", errors.New("boom")))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":false,"error":"persistence: put profile: boom"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Milo"}`))
	require.NoError(t, DecodeJSON(r, &v))
	assert.Equal(t, "Milo", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	err := DecodeJSON(r, &v)
	assert.True(t, apperr.IsValidation(err))

	r = httptest.NewRequest(http.MethodPost, "/", nil)
	assert.NoError(t, DecodeJSON(r, &v))
}
