package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/jumpgate/internal/catalog"
)

func TestResponderStructured(t *testing.T) {
	c, err := catalog.Parse([]byte("session_id:\n  forbidden: https://docs.example.com/forbidden\n"))
	require.NoError(t, err)

	rs := NewResponder(FormatStructured, c)
	rec := httptest.NewRecorder()
	rs.Reject(rec, RejectForbidden)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":403,"field":"session_id","error":"forbidden","docs":"https://docs.example.com/forbidden"}`, rec.Body.String())
}

func TestResponderStructuredWithoutDocs(t *testing.T) {
	rs := NewResponder(FormatStructured, catalog.Empty())
	rec := httptest.NewRecorder()
	rs.Reject(rec, RejectAppKeyRequired)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":400,"field":"app_key","error":"required"}`, rec.Body.String())
}

func TestResponderLegacy(t *testing.T) {
	tests := []struct {
		rej    Rejection
		status int
		body   string
	}{
		{RejectServiceInactive, 400, `{"message":"service_inactive"}`},
		{RejectAppKeyRequired, 400, `{"message":"missing.app_key"}`},
		{RejectAppKeyUnknown, 404, `{"message":"application_not_found"}`},
		{RejectSessionRequired, 400, `{"message":"missing.session_id"}`},
		{RejectSessionUnknown, 404, `{"message":"session_not_found"}`},
		{RejectSessionExpired, 422, `{"message":"invalid_session"}`},
		{RejectForbidden, 401, `{"message":"unauthorized"}`},
	}

	rs := NewResponder(FormatLegacy, nil)
	for _, tt := range tests {
		t.Run(tt.rej.LegacyMessage, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rs.Reject(rec, tt.rej)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.status, rs.StatusOf(tt.rej))
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestResponderUnknownFormatIsStructured(t *testing.T) {
	assert.Equal(t, FormatStructured, NewResponder("xml", nil).Format())
}

func TestPathNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	PathNotFound(rec, httptest.NewRequest("DELETE", "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"path_not_found"}`, rec.Body.String())
}
