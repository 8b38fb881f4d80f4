package httpserver

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeout_AnswersProblemJSON(t *testing.T) {
	srv := New(20 * time.Millisecond)
	srv.Mount("/slow", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	rec := do(t, srv.Mux(), http.MethodGet, "/slow", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	p := decodeProblem(t, rec)
	assert.Equal(t, "urn:ratings:timeout", p.Type)
	assert.Equal(t, http.StatusServiceUnavailable, p.Status)
}

func TestTimeout_KeepsHandlerHeaders(t *testing.T) {
	srv := New(time.Second)
	srv.Mount("/unavailable", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"state": "warming"})
	}))
	srv.MountHandlers(&Handlers{Q: &stubQueries{}})

	rec := do(t, srv.Mux(), http.MethodGet, "/unavailable", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = do(t, srv.Mux(), http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "application/problem+json", rec.Header().Get("Content-Type"))
}
