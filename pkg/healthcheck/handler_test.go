package healthcheck_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/wafwatch/wafwatch/pkg/healthcheck"
)

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		Unavailable: "unavailable",
		Ready:       "ready",
		Broken:      "broken",
		Status(-1):  "unknown",
	}
	for k, v := range tests {
		assert.Equal(t, v, k.String())
	}
}

func TestStatusSetGet(t *testing.T) {
	hc := New()
	assert.Equal(t, Unavailable, hc.Get())

	hc.Set(Ready)
	assert.Equal(t, Ready, hc.Get())

	hc.Set(Broken)
	assert.Equal(t, Broken, hc.Get())
}

func TestHealthCheck_Handler_ContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	New().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	resp := rec.Result()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestHealthCheck_Handler_StatusCodes(t *testing.T) {
	hc := New()

	rec := httptest.NewRecorder()
	hc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Result().StatusCode)

	hc.Set(Ready)
	rec = httptest.NewRecorder()
	hc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Result().StatusCode)
}
