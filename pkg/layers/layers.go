// Package layers converts caller-supplied layer references into the wire form the
// analysis server expects and decodes layer-shaped output values.
package layers

import (
	"errors"
	"fmt"

	"github.com/duke-git/lancet/v2/strutil"
)

// Geometry types used in feature collections.
const (
	GeometryPoint      = "esriGeometryPoint"
	GeometryMultipoint = "esriGeometryMultipoint"
	GeometryPolyline   = "esriGeometryPolyline"
	GeometryPolygon    = "esriGeometryPolygon"
	GeometryEnvelope   = "esriGeometryEnvelope"
)

var (
	ErrNilInput   = errors.New("layer input is nil")
	ErrEmptyURL   = errors.New("layer url is empty")
	ErrEmptyItem  = errors.New("item has neither url nor item id")
	ErrNoFeatures = errors.New("feature input has no features")
)

// Input is a layer reference. The set of variants is closed: Item, URL,
// FeatureCollection, Geometry, GeocodeCandidates and Raw.
type Input interface {
	layerInput()
}

// Item references a portal item. A hosted layer item is passed by URL; an item
// without a service, such as a stored feature collection, by id.
type Item struct {
	URL    string
	ItemID string
	Filter string
}

// URL references a feature service layer directly.
type URL struct {
	URL    string
	Filter string
}

// FeatureCollection is an in-memory layer.
type FeatureCollection struct {
	LayerDefinition map[string]any
	FeatureSet      map[string]any
}

// Geometry is a single raw geometry, sent as a one-feature collection.
type Geometry struct {
	GeometryType     string
	Geometry         map[string]any
	Attributes       map[string]any
	SpatialReference *SpatialReference
}

// Candidate is one geocoder match.
type Candidate struct {
	Address    string
	X, Y       float64
	Score      float64
	Attributes map[string]any
}

// GeocodeCandidates turns geocoder matches into a point layer.
type GeocodeCandidates struct {
	Candidates       []Candidate
	SpatialReference *SpatialReference
}

// Raw is passed through unchanged.
type Raw map[string]any

func (Item) layerInput()              {}
func (URL) layerInput()               {}
func (FeatureCollection) layerInput() {}
func (Geometry) layerInput()          {}
func (GeocodeCandidates) layerInput() {}
func (Raw) layerInput()               {}

// ToWire returns the JSON-ready representation of in.
func ToWire(in Input) (map[string]any, error) {
	switch v := in.(type) {
	case nil:
		return nil, ErrNilInput
	case Item:
		return itemToWire(v)
	case *Item:
		return deref(v, itemToWire)
	case URL:
		return urlToWire(v)
	case *URL:
		return deref(v, urlToWire)
	case FeatureCollection:
		return collectionToWire(v)
	case *FeatureCollection:
		return deref(v, collectionToWire)
	case Geometry:
		return geometryToWire(v)
	case *Geometry:
		return deref(v, geometryToWire)
	case GeocodeCandidates:
		return candidatesToWire(v)
	case *GeocodeCandidates:
		return deref(v, candidatesToWire)
	case Raw:
		if v == nil {
			return nil, ErrNilInput
		}
		return map[string]any(v), nil
	default:
		return nil, fmt.Errorf("unsupported layer input %T", in)
	}
}

// deref converts a pointer variant; a typed nil pointer is a nil input.
func deref[T any](p *T, conv func(T) (map[string]any, error)) (map[string]any, error) {
	if p == nil {
		return nil, ErrNilInput
	}
	return conv(*p)
}

func itemToWire(v Item) (map[string]any, error) {
	switch {
	case !strutil.IsBlank(v.URL):
		return withFilter(map[string]any{"url": v.URL}, v.Filter), nil
	case !strutil.IsBlank(v.ItemID):
		return withFilter(map[string]any{"itemId": v.ItemID}, v.Filter), nil
	default:
		return nil, ErrEmptyItem
	}
}

func urlToWire(v URL) (map[string]any, error) {
	if strutil.IsBlank(v.URL) {
		return nil, ErrEmptyURL
	}
	return withFilter(map[string]any{"url": v.URL}, v.Filter), nil
}

func withFilter(m map[string]any, filter string) map[string]any {
	if filter != "" {
		m["filter"] = filter
	}
	return m
}

func collectionToWire(v FeatureCollection) (map[string]any, error) {
	if v.FeatureSet == nil {
		return nil, ErrNoFeatures
	}
	out := map[string]any{"featureSet": v.FeatureSet}
	if v.LayerDefinition != nil {
		out["layerDefinition"] = v.LayerDefinition
	}
	return out, nil
}

func geometryToWire(v Geometry) (map[string]any, error) {
	if v.Geometry == nil {
		return nil, ErrNoFeatures
	}
	if v.GeometryType == "" {
		return nil, errors.New("geometry type is required")
	}

	attrs := v.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	features := []any{map[string]any{"geometry": v.Geometry, "attributes": attrs}}
	return featureCollection(v.GeometryType, nil, features, v.SpatialReference), nil
}

func candidatesToWire(v GeocodeCandidates) (map[string]any, error) {
	if len(v.Candidates) == 0 {
		return nil, ErrNoFeatures
	}

	sr := v.SpatialReference
	if sr == nil {
		sr = WGS84
	}

	fields := []any{
		map[string]any{"name": "Address", "type": "esriFieldTypeString", "alias": "Address"},
		map[string]any{"name": "Score", "type": "esriFieldTypeDouble", "alias": "Score"},
	}
	features := make([]any, 0, len(v.Candidates))
	for _, c := range v.Candidates {
		attrs := make(map[string]any, len(c.Attributes)+2)
		for k, a := range c.Attributes {
			attrs[k] = a
		}
		attrs["Address"] = c.Address
		attrs["Score"] = c.Score
		features = append(features, map[string]any{
			"geometry":   map[string]any{"x": c.X, "y": c.Y},
			"attributes": attrs,
		})
	}
	return featureCollection(GeometryPoint, fields, features, sr), nil
}

func featureCollection(geometryType string, fields, features []any, sr *SpatialReference) map[string]any {
	if fields == nil {
		fields = []any{}
	}
	featureSet := map[string]any{
		"geometryType": geometryType,
		"features":     features,
	}
	if sr != nil {
		featureSet["spatialReference"] = sr.ToWire()
	}
	return map[string]any{
		"layerDefinition": map[string]any{
			"geometryType": geometryType,
			"fields":       fields,
		},
		"featureSet": featureSet,
	}
}
