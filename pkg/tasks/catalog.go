// Package tasks maps analysis tasks to their server parameter names and runs them
// through a geoprocessing Runner.
package tasks

import (
	"sort"

	"github.com/duke-git/lancet/v2/maputil"
)

// Keywords every task accepts.
const (
	KeywordOutputName = "output_name"
	KeywordContext    = "context"
)

// Definition describes one server task: its name, the mapping from caller
// keywords to server field names, and the output parameter holding the result.
type Definition struct {
	Name     string
	Fields   map[string]string
	Required []string
	Output   string
}

// Field returns the server field name of keyword.
func (d Definition) Field(keyword string) (string, bool) {
	switch keyword {
	case KeywordOutputName:
		return "outputName", true
	case KeywordContext:
		return "context", true
	}
	f, ok := d.Fields[keyword]
	return f, ok
}

// Keywords returns the accepted keywords in sorted order.
func (d Definition) Keywords() []string {
	out := append(maputil.Keys(d.Fields), KeywordOutputName, KeywordContext)
	sort.Strings(out)
	return out
}

var (
	CalculateDensityTask = Definition{
		Name: "CalculateDensity",
		Fields: map[string]string{
			"input_layer":            "inputLayer",
			"field":                  "field",
			"cell_size":              "cellSize",
			"cell_size_units":        "cellSizeUnits",
			"radius":                 "radius",
			"radius_units":           "radiusUnits",
			"bounding_polygon_layer": "boundingPolygonLayer",
			"area_units":             "areaUnits",
			"classification_type":    "classificationType",
			"num_classes":            "numClasses",
		},
		Required: []string{"input_layer"},
		Output:   "resultLayer",
	}

	FindHotSpotsTask = Definition{
		Name: "FindHotSpots",
		Fields: map[string]string{
			"analysis_layer":            "analysisLayer",
			"analysis_field":            "analysisField",
			"divided_by_field":          "dividedByField",
			"bounding_polygon_layer":    "boundingPolygonLayer",
			"aggregation_polygon_layer": "aggregationPolygonLayer",
			"shape_type":                "shapeType",
			"cell_size":                 "cellSize",
			"cell_size_units":           "cellSizeUnits",
			"distance_band":             "distanceBand",
			"distance_band_units":       "distanceBandUnits",
		},
		Required: []string{"analysis_layer"},
		Output:   "hotSpotsResultLayer",
	}

	CreateBuffersTask = Definition{
		Name: "CreateBuffers",
		Fields: map[string]string{
			"input_layer":   "inputLayer",
			"distances":     "distances",
			"field":         "field",
			"units":         "units",
			"dissolve_type": "dissolveType",
			"ring_type":     "ringType",
			"side_type":     "sideType",
			"end_type":      "endType",
		},
		Required: []string{"input_layer"},
		Output:   "bufferLayer",
	}

	OverlayLayersTask = Definition{
		Name: "OverlayLayers",
		Fields: map[string]string{
			"input_layer":   "inputLayer",
			"overlay_layer": "overlayLayer",
			"overlay_type":  "overlayType",
			"snap_to_input": "snapToInput",
			"output_type":   "outputType",
			"tolerance":     "tolerance",
		},
		Required: []string{"input_layer", "overlay_layer"},
		Output:   "outputLayer",
	}

	InterpolatePointsTask = Definition{
		Name: "InterpolatePoints",
		Fields: map[string]string{
			"input_layer":             "inputLayer",
			"field":                   "field",
			"interpolate_option":      "interpolateOption",
			"output_prediction_error": "outputPredictionError",
			"classification_type":     "classificationType",
			"num_classes":             "numClasses",
			"class_breaks":            "classBreaks",
			"bounding_polygon_layer":  "boundingPolygonLayer",
			"predict_at_point_layer":  "predictAtPointLayer",
		},
		Required: []string{"input_layer", "field"},
		Output:   "resultLayer",
	}

	PlanRoutesTask = Definition{
		Name: "PlanRoutes",
		Fields: map[string]string{
			"stops_layer":         "stopsLayer",
			"route_count":         "routeCount",
			"max_stops_per_route": "maxStopsPerRoute",
			"route_start_time":    "routeStartTime",
			"start_layer":         "startLayer",
			"end_layer":           "endLayer",
			"return_to_start":     "returnToStart",
			"travel_mode":         "travelMode",
			"stop_service_time":   "stopServiceTime",
			"max_route_time":      "maxRouteTime",
		},
		Required: []string{"stops_layer", "route_count", "max_stops_per_route", "start_layer"},
		Output:   "routesLayer",
	}

	AggregatePointsTask = Definition{
		Name: "AggregatePoints",
		Fields: map[string]string{
			"point_layer":                    "pointLayer",
			"polygon_layer":                  "polygonLayer",
			"keep_boundaries_with_no_points": "keepBoundariesWithNoPoints",
			"summary_fields":                 "summaryFields",
			"group_by_field":                 "groupByField",
			"minority_majority":              "minorityMajority",
			"percent_points":                 "percentPoints",
		},
		Required: []string{"point_layer", "polygon_layer"},
		Output:   "aggregatedLayer",
	}

	SummarizeNearbyTask = Definition{
		Name: "SummarizeNearby",
		Fields: map[string]string{
			"sum_nearby_layer":          "sumNearbyLayer",
			"summary_layer":             "summaryLayer",
			"near_type":                 "nearType",
			"distances":                 "distances",
			"units":                     "units",
			"time_of_day":               "timeOfDay",
			"time_zone_for_time_of_day": "timeZoneForTimeOfDay",
			"return_boundaries":         "returnBoundaries",
			"sum_shape":                 "sumShape",
			"shape_units":               "shapeUnits",
			"summary_fields":            "summaryFields",
			"group_by_field":            "groupByField",
		},
		Required: []string{"sum_nearby_layer", "summary_layer"},
		Output:   "resultLayer",
	}

	DissolveBoundariesTask = Definition{
		Name: "DissolveBoundaries",
		Fields: map[string]string{
			"input_layer":         "inputLayer",
			"dissolve_fields":     "dissolveFields",
			"summary_fields":      "summaryFields",
			"multi_part_features": "multiPartFeatures",
		},
		Required: []string{"input_layer"},
		Output:   "dissolvedLayer",
	}

	ExtractDataTask = Definition{
		Name: "ExtractData",
		Fields: map[string]string{
			"input_layers": "inputLayers",
			"extent":       "extent",
			"clip":         "clip",
			"data_format":  "dataFormat",
		},
		Required: []string{"input_layers"},
		Output:   "contentID",
	}
)

// Catalog holds task definitions by name.
type Catalog map[string]Definition

// DefaultCatalog returns the built-in task definitions.
func DefaultCatalog() Catalog {
	c := Catalog{}
	for _, d := range []Definition{
		CalculateDensityTask,
		FindHotSpotsTask,
		CreateBuffersTask,
		OverlayLayersTask,
		InterpolatePointsTask,
		PlanRoutesTask,
		AggregatePointsTask,
		SummarizeNearbyTask,
		DissolveBoundariesTask,
		ExtractDataTask,
	} {
		c[d.Name] = d
	}
	return c
}

// Lookup returns the definition of task.
func (c Catalog) Lookup(task string) (Definition, bool) {
	d, ok := c[task]
	return d, ok
}

// Names returns the task names in sorted order.
func (c Catalog) Names() []string {
	names := maputil.Keys(c)
	sort.Strings(names)
	return names
}
