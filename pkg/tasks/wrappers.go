package tasks

import (
	"context"

	"yqhp/geoanalysis/pkg/layers"
)

// CalculateDensityOptions are the arguments of CalculateDensity. Zero values are
// left to the server default.
type CalculateDensityOptions struct {
	InputLayer           layers.Input
	Field                string
	CellSize             float64
	CellSizeUnits        string
	Radius               float64
	RadiusUnits          string
	BoundingPolygonLayer layers.Input
	AreaUnits            string
	ClassificationType   string
	NumClasses           int
	OutputName           string
	Context              *layers.Context
}

// CalculateDensity creates a density map from point or line features.
func CalculateDensity(ctx context.Context, r Runner, opts CalculateDensityOptions) (*Result, error) {
	args := Args{}.
		Set("input_layer", opts.InputLayer).
		Set("field", opts.Field).
		Set("cell_size", opts.CellSize).
		Set("cell_size_units", opts.CellSizeUnits).
		Set("radius", opts.Radius).
		Set("radius_units", opts.RadiusUnits).
		Set("bounding_polygon_layer", opts.BoundingPolygonLayer).
		Set("area_units", opts.AreaUnits).
		Set("classification_type", opts.ClassificationType).
		Set("num_classes", opts.NumClasses).
		Set(KeywordOutputName, opts.OutputName).
		Set(KeywordContext, opts.Context)
	return Run(ctx, r, CalculateDensityTask, args)
}

// FindHotSpotsOptions are the arguments of FindHotSpots.
type FindHotSpotsOptions struct {
	AnalysisLayer           layers.Input
	AnalysisField           string
	DividedByField          string
	BoundingPolygonLayer    layers.Input
	AggregationPolygonLayer layers.Input
	ShapeType               string
	CellSize                float64
	CellSizeUnits           string
	DistanceBand            float64
	DistanceBandUnits       string
	OutputName              string
	Context                 *layers.Context
}

// FindHotSpots finds statistically significant clusters of high and low values.
func FindHotSpots(ctx context.Context, r Runner, opts FindHotSpotsOptions) (*Result, error) {
	args := Args{}.
		Set("analysis_layer", opts.AnalysisLayer).
		Set("analysis_field", opts.AnalysisField).
		Set("divided_by_field", opts.DividedByField).
		Set("bounding_polygon_layer", opts.BoundingPolygonLayer).
		Set("aggregation_polygon_layer", opts.AggregationPolygonLayer).
		Set("shape_type", opts.ShapeType).
		Set("cell_size", opts.CellSize).
		Set("cell_size_units", opts.CellSizeUnits).
		Set("distance_band", opts.DistanceBand).
		Set("distance_band_units", opts.DistanceBandUnits).
		Set(KeywordOutputName, opts.OutputName).
		Set(KeywordContext, opts.Context)
	return Run(ctx, r, FindHotSpotsTask, args)
}

// CreateBuffersOptions are the arguments of CreateBuffers. Either Distances or
// Field gives the buffer size.
type CreateBuffersOptions struct {
	InputLayer   layers.Input
	Distances    []float64
	Field        string
	Units        string
	DissolveType string
	RingType     string
	SideType     string
	EndType      string
	OutputName   string
	Context      *layers.Context
}

// CreateBuffers creates polygons covering a distance around input features.
func CreateBuffers(ctx context.Context, r Runner, opts CreateBuffersOptions) (*Result, error) {
	if len(opts.Distances) == 0 && opts.Field == "" {
		return nil, &ArgumentError{Task: CreateBuffersTask.Name, Keyword: "distances", Reason: "distances or field is required"}
	}
	args := Args{}.
		Set("input_layer", opts.InputLayer).
		Set("distances", opts.Distances).
		Set("field", opts.Field).
		Set("units", opts.Units).
		Set("dissolve_type", opts.DissolveType).
		Set("ring_type", opts.RingType).
		Set("side_type", opts.SideType).
		Set("end_type", opts.EndType).
		Set(KeywordOutputName, opts.OutputName).
		Set(KeywordContext, opts.Context)
	return Run(ctx, r, CreateBuffersTask, args)
}
