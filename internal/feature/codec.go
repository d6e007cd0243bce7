package feature

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Marshal serializes features as a GeoJSON feature collection. The locked
// flag travels as a feature property so a restored snapshot can tell
// reference polygons from editable lines.
func Marshal(features []*Feature) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		var gf *geojson.Feature
		switch f.Type {
		case Line:
			gf = geojson.NewFeature(orb.LineString(f.Coordinates))
		case Polygon:
			gf = geojson.NewFeature(orb.Polygon{orb.Ring(f.Coordinates)})
		default:
			return nil, fmt.Errorf("cannot serialize feature %s of type %q", f.ID, f.Type)
		}
		gf.ID = f.ID
		gf.Properties["id"] = f.ID
		gf.Properties["locked"] = f.Locked
		fc.Append(gf)
	}
	return fc.MarshalJSON()
}

// Unmarshal restores features from a GeoJSON feature collection.
// Geometry types the viewer does not draw are skipped rather than
// treated as corruption.
func Unmarshal(data []byte) ([]*Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	var features []*Feature
	for _, gf := range fc.Features {
		f := &Feature{}

		switch g := gf.Geometry.(type) {
		case orb.LineString:
			f.Type = Line
			f.Coordinates = append([]orb.Point(nil), g...)
		case orb.Polygon:
			if len(g) == 0 {
				continue
			}
			f.Type = Polygon
			f.Coordinates = append([]orb.Point(nil), g[0]...)
		default:
			continue
		}

		if id, ok := gf.Properties["id"].(string); ok && id != "" {
			f.ID = id
		} else if id, ok := gf.ID.(string); ok && id != "" {
			f.ID = id
		} else {
			f.ID = New(f.Type).ID
		}
		if locked, ok := gf.Properties["locked"].(bool); ok {
			f.Locked = locked
		}

		features = append(features, f)
	}
	return features, nil
}
