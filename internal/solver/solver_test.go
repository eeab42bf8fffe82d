package solver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Solve(t *testing.T) {
	image := []byte("fake-png-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/captcha/solve", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()

		got, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, image, got)
		assert.Equal(t, "captcha.png", header.Filename)
		assert.Equal(t, "image/png", r.FormValue("mimeType"))

		json.NewEncoder(w).Encode(map[string]any{
			"success":     true,
			"captchaText": "48291",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	rec := c.Solve(context.Background(), image, "image/png")

	assert.True(t, rec.Success)
	assert.Equal(t, "48291", rec.Text)
}

func TestClient_Solve_ServiceReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "low confidence",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	rec := c.Solve(context.Background(), []byte("x"), "image/png")
	assert.False(t, rec.Success)
	assert.Empty(t, rec.Text)
}

func TestClient_Solve_DegradesNotErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				io.WriteString(w, "<html>not json</html>")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, time.Second, nil)
			rec := c.Solve(context.Background(), []byte("x"), "image/png")
			assert.False(t, rec.Success)
		})
	}
}

func TestClient_Solve_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, 100*time.Millisecond, nil)
	rec := c.Solve(context.Background(), []byte("x"), "image/png")
	assert.False(t, rec.Success)
}

func TestDisabled(t *testing.T) {
	rec := Disabled{}.Solve(context.Background(), []byte("x"), "image/png")
	assert.False(t, rec.Success)
}

func TestNoPrompter(t *testing.T) {
	text, ok, err := NoPrompter{}.Prompt(context.Background(), ManualRequest{BOID: "1301010000123456"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, text)
}
