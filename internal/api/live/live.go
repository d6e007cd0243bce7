package live

import (
	"context"
	"mime/multipart"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bhupatram/tippan/internal/parcel"
)

// Handler serves the live SSE routes.
type Handler struct {
	parcels *parcel.Service
	bus     *EventBus
}

// NewHandler creates a live handler publishing on the given bus.
func NewHandler(parcels *parcel.Service, bus *EventBus) *Handler {
	if bus == nil {
		bus = DefaultBus
	}
	return &Handler{parcels: parcels, bus: bus}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/live/events", h.Events, huma.OperationTags("live"))
	huma.Post(api, "/api/v1/parcels/upload", h.UploadParcels, huma.OperationTags("parcels"))
}

// Events streams resource change events as Datastar signals until the
// client goes away.
func (h *Handler) Events(ctx context.Context, input *EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSE(humaCtx)
			ch := h.bus.Subscribe()
			defer h.bus.Unsubscribe(ch)

			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-ch:
					sse.Signals(map[string]any{
						"resource": ev.Resource,
						"action":   ev.Action,
						"id":       ev.ID,
					})
				}
			}
		},
	}, nil
}

type ParcelUploadInput struct {
	RawBody multipart.Form
}

// UploadParcels accepts a new parcel tile archive and promotes it,
// streaming progress as it goes. The previous archive is kept as a
// timestamped backup.
func (h *Handler) UploadParcels(ctx context.Context, input *ParcelUploadInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSE(humaCtx)

			files := input.RawBody.File["pmtiles"]
			if len(files) == 0 {
				sse.Error("No file provided")
				return
			}

			fileHeader := files[0]
			file, err := fileHeader.Open()
			if err != nil {
				sse.Error("Failed to open uploaded file")
				return
			}
			defer file.Close()

			sse.Progress("Staging archive...", 10)
			if err := h.parcels.Promote(file); err != nil {
				sse.Error(err.Error())
				return
			}

			sse.Progress("Archive promoted", 100)
			sse.Success("Parcel tiles updated: " + fileHeader.Filename)
			h.bus.Publish(Event{Resource: "parcels", Action: "promoted"})
		},
	}, nil
}
