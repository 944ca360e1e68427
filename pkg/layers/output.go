package layers

import (
	"errors"
	"fmt"

	"github.com/ohler55/ojg/jp"

	"yqhp/geoanalysis/common/utils"
)

// OutputKind classifies a resolved output value.
type OutputKind string

const (
	KindItem              OutputKind = "item"
	KindFeatureCollection OutputKind = "featureCollection"
	KindRaw               OutputKind = "raw"
)

// ErrNilOutput is returned when an output value is null.
var ErrNilOutput = errors.New("output value is null")

var (
	itemIDPath       = jp.MustParseString("$.itemId")
	urlPath          = jp.MustParseString("$.url")
	featuresPath     = jp.MustParseString("$.featureSet.features")
	geometryTypePath = jp.MustParseString("$.featureSet.geometryType")
	layerDefPath     = jp.MustParseString("$.layerDefinition")
	nestedPath       = jp.MustParseString("$.layers[*].featureSet.features")
	nestedGeomPath   = jp.MustParseString("$.layers[*].featureSet.geometryType")
)

// Output is a decoded output value.
type Output struct {
	Kind         OutputKind
	ItemID       string
	URL          string
	GeometryType string
	FeatureCount int
	Raw          any
}

// DecodeOutput classifies a value returned by a result parameter lookup. Item
// references carry an itemId or url; feature collections carry a featureSet,
// either at the top level or under layers. Anything else is raw.
func DecodeOutput(value any) (*Output, error) {
	if value == nil {
		return nil, ErrNilOutput
	}

	data, err := normalize(value)
	if err != nil {
		return nil, err
	}

	out := &Output{Kind: KindRaw, Raw: data}

	if m, ok := data.(map[string]any); ok {
		switch {
		case has(featuresPath, m) || has(layerDefPath, m):
			out.Kind = KindFeatureCollection
			out.FeatureCount = countFeatures(featuresPath.Get(m))
			out.GeometryType = firstString(geometryTypePath, m)
		case has(nestedPath, m):
			out.Kind = KindFeatureCollection
			out.FeatureCount = countFeatures(nestedPath.Get(m))
			out.GeometryType = firstString(nestedGeomPath, m)
		case has(itemIDPath, m) || has(urlPath, m):
			out.Kind = KindItem
			out.ItemID = firstString(itemIDPath, m)
			out.URL = firstString(urlPath, m)
		}
	}
	return out, nil
}

// normalize converts typed values into the generic map/slice form jp walks.
func normalize(value any) (any, error) {
	switch value.(type) {
	case map[string]any, []any, string, float64, bool, int, int64:
		return value, nil
	}
	data, err := utils.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode output value: %w", err)
	}
	var out any
	if err := utils.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode output value: %w", err)
	}
	return out, nil
}

func has(x jp.Expr, data any) bool {
	return len(x.Get(data)) > 0
}

func firstString(x jp.Expr, data any) string {
	s, _ := x.First(data).(string)
	return s
}

func countFeatures(lists []any) int {
	n := 0
	for _, l := range lists {
		if features, ok := l.([]any); ok {
			n += len(features)
		}
	}
	return n
}
