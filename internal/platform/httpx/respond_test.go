package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{name: "unauthorized", err: fmt.Errorf("%w: no active token", ErrUnauthorized), status: http.StatusUnauthorized, detail: "unauthorized: no active token"},
		{name: "upstream", err: fmt.Errorf("%w: timeout", ErrUpstream), status: http.StatusBadGateway, detail: "upstream request failed: timeout"},
		{name: "unknown hides detail", err: fmt.Errorf("boom"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
			var body ProblemDetail
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.detail, body.Detail)
		})
	}
}

func TestJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	JSON(rr, http.StatusOK, map[string]bool{"loggedIn": true})

	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"loggedIn":true}`, rr.Body.String())
}
