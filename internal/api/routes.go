// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bhupatram/tippan/internal/feature"
	"github.com/bhupatram/tippan/internal/geocode"
	"github.com/bhupatram/tippan/internal/parcel"
	"github.com/bhupatram/tippan/internal/store"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Parcel   *parcel.Service
	Snapshot *store.Snapshot
	Geocoder *geocode.Client

	// Notify publishes a resource change for live listeners; may be nil.
	Notify func(resource, action, id string)
}

func (s *Services) notify(resource, action, id string) {
	if s != nil && s.Notify != nil {
		s.Notify(resource, action, id)
	}
}

// Types

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type SnapshotOutput struct {
	Body json.RawMessage
}

type SnapshotInput struct {
	Body json.RawMessage `doc:"GeoJSON FeatureCollection of drawn features"`
}

type SnapshotSavedBody struct {
	Features int    `json:"features" doc:"Number of stored features"`
	Message  string `json:"message" doc:"Result message"`
}

type GeocodeInput struct {
	Query string `query:"q" doc:"Free-text place query" example:"anand gujarat"`
}

type GeocodeOutput struct {
	Body []geocode.Candidate
}

// Handler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type Handler struct {
	svc *Services
}

func NewHandler(svc *Services) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires all handlers into the API.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewHandler(svc))
}

// RegisterHealth registers health check routes.
func (h *Handler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterSnapshot registers the geometry snapshot routes.
func (h *Handler) RegisterSnapshot(api huma.API) {
	huma.Get(api, "/api/v1/snapshot", h.GetSnapshot, huma.OperationTags("snapshot"))
	huma.Put(api, "/api/v1/snapshot", h.PutSnapshot, huma.OperationTags("snapshot"))
}

// RegisterParcels registers parcel archive routes.
func (h *Handler) RegisterParcels(api huma.API) {
	huma.Get(api, "/api/v1/parcels/info", h.GetParcelInfo, huma.OperationTags("parcels"))
}

// RegisterGeocode registers the place-search proxy.
func (h *Handler) RegisterGeocode(api huma.API) {
	huma.Get(api, "/api/v1/geocode", h.Geocode, huma.OperationTags("geocode"))
}

// Handlers

func (h *Handler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

// GetSnapshot returns the stored feature set as GeoJSON. With no
// snapshot saved yet it returns an empty collection.
func (h *Handler) GetSnapshot(ctx context.Context, input *struct{}) (*SnapshotOutput, error) {
	features, err := h.svc.Snapshot.Load()
	if err != nil && !errors.Is(err, store.ErrNoSnapshot) {
		return nil, huma.Error500InternalServerError("loading snapshot failed")
	}
	data, err := feature.Marshal(features)
	if err != nil {
		return nil, huma.Error500InternalServerError("serializing snapshot failed")
	}
	return &SnapshotOutput{Body: data}, nil
}

// PutSnapshot replaces the stored feature set wholesale. The document
// is validated before anything is written.
func (h *Handler) PutSnapshot(ctx context.Context, input *SnapshotInput) (*struct{ Body SnapshotSavedBody }, error) {
	features, err := feature.Unmarshal(input.Body)
	if err != nil {
		return nil, huma.Error400BadRequest("not a valid feature collection: " + err.Error())
	}
	if err := h.svc.Snapshot.Save(features); err != nil {
		return nil, huma.Error500InternalServerError("saving snapshot failed")
	}
	h.svc.notify("snapshot", "replaced", "")
	return &struct{ Body SnapshotSavedBody }{Body: SnapshotSavedBody{
		Features: len(features), Message: "Snapshot saved",
	}}, nil
}

func (h *Handler) GetParcelInfo(ctx context.Context, input *struct{}) (*struct{ Body parcel.Info }, error) {
	if h.svc == nil || h.svc.Parcel == nil {
		return &struct{ Body parcel.Info }{}, nil
	}
	info, err := h.svc.Parcel.Info()
	if err != nil {
		return nil, huma.Error500InternalServerError("reading archive info failed")
	}
	return &struct{ Body parcel.Info }{Body: info}, nil
}

// Geocode proxies the place search. Upstream failure degrades to an
// empty candidate list so the client UI never breaks on search.
func (h *Handler) Geocode(ctx context.Context, input *GeocodeInput) (*GeocodeOutput, error) {
	if h.svc == nil || h.svc.Geocoder == nil {
		return &GeocodeOutput{Body: []geocode.Candidate{}}, nil
	}
	candidates, err := h.svc.Geocoder.Search(ctx, input.Query)
	if err != nil || candidates == nil {
		return &GeocodeOutput{Body: []geocode.Candidate{}}, nil
	}
	return &GeocodeOutput{Body: candidates}, nil
}
