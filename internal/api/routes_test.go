package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/rs/zerolog"

	"github.com/bhupatram/tippan/internal/geocode"
	"github.com/bhupatram/tippan/internal/parcel"
	"github.com/bhupatram/tippan/internal/store"
)

func newTestAPI(t *testing.T, svc *Services) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	RegisterRoutes(api, svc)
	return api
}

func newServices(t *testing.T) *Services {
	t.Helper()
	parcels, err := parcel.NewService(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return &Services{
		Parcel:   parcels,
		Snapshot: store.NewSnapshot(store.NewMemKV(), zerolog.Nop()),
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, newServices(t))
	resp := api.Get("/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"ok"`) {
		t.Errorf("body = %s", resp.Body.String())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	api := newTestAPI(t, newServices(t))

	doc := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"id":"a1"},"geometry":{"type":"LineString","coordinates":[[72.9,22.5],[72.91,22.5]]}}]}`
	put := api.Put("/api/v1/snapshot", strings.NewReader(doc))
	if put.Code != http.StatusOK {
		t.Fatalf("put status = %d: %s", put.Code, put.Body.String())
	}
	if !strings.Contains(put.Body.String(), `"features":1`) {
		t.Errorf("put body = %s", put.Body.String())
	}

	get := api.Get("/api/v1/snapshot")
	if get.Code != http.StatusOK {
		t.Fatalf("get status = %d", get.Code)
	}
	if !strings.Contains(get.Body.String(), "a1") {
		t.Errorf("get body missing stored feature: %s", get.Body.String())
	}
}

func TestSnapshotEmptyByDefault(t *testing.T) {
	api := newTestAPI(t, newServices(t))
	resp := api.Get("/api/v1/snapshot")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "FeatureCollection") {
		t.Errorf("body = %s", resp.Body.String())
	}
}

func TestPutSnapshotRejectsGarbage(t *testing.T) {
	api := newTestAPI(t, newServices(t))
	resp := api.Put("/api/v1/snapshot", strings.NewReader("{broken"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}

	// Valid JSON that is not a feature collection is rejected too.
	resp = api.Put("/api/v1/snapshot", strings.NewReader(`{"type":"Point"}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestParcelInfoWithoutArchive(t *testing.T) {
	api := newTestAPI(t, newServices(t))
	resp := api.Get("/api/v1/parcels/info")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"exists":false`) {
		t.Errorf("body = %s", resp.Body.String())
	}
}

func TestGeocodeWithoutBackend(t *testing.T) {
	api := newTestAPI(t, newServices(t))
	resp := api.Get("/api/v1/geocode?q=anand")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if strings.TrimSpace(resp.Body.String()) != "[]" {
		t.Errorf("body = %s, want empty list", resp.Body.String())
	}
}

func TestGeocodeDegradesOnUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer upstream.Close()

	svc := newServices(t)
	svc.Geocoder = geocode.New(upstream.URL)
	api := newTestAPI(t, svc)

	resp := api.Get("/api/v1/geocode?q=anand")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if strings.TrimSpace(resp.Body.String()) != "[]" {
		t.Errorf("body = %s, want empty list", resp.Body.String())
	}
}
