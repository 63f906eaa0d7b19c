package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNominatimGeocoder_Geocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "Kadıköy, İstanbul", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"40.9903","lon":"29.0290","display_name":"Kadıköy"}]`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(srv.URL, zap.NewNop())
	loc, err := g.Geocode(context.Background(), "Kadıköy, İstanbul")
	require.NoError(t, err)
	assert.InDelta(t, 40.9903, loc.Lat, 1e-9)
	assert.InDelta(t, 29.0290, loc.Lon, 1e-9)
}

func TestNominatimGeocoder_NoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(srv.URL, zap.NewNop())
	_, err := g.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoGeocodeResult)
}

func TestNominatimGeocoder_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(srv.URL, zap.NewNop())
	_, err := g.Geocode(context.Background(), "x")
	require.Error(t, err)
}
