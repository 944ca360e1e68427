package geoprocessing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yqhp/geoanalysis/pkg/connection"
	"yqhp/geoanalysis/pkg/types"
)

func TestResolver_Resolve(t *testing.T) {
	h := testHandle("OverlayLayers", "j1")
	conn := newFakeConn().
		on(h.ResultURL("results/A"), `{"paramName":"A","value":{"featureSet":{"features":[]}}}`).
		on(h.ResultURL("results/B"), `{"paramName":"B","value":"item-42"}`)

	out, err := NewResolver(conn, zap.NewNop()).Resolve(context.Background(), h, map[string]types.ResultParam{
		"A": {ParamURL: "results/A"},
		"B": {ParamURL: "results/B"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"A": map[string]any{"featureSet": map[string]any{"features": []any{}}},
		"B": "item-42",
	}, out)
	assert.Equal(t, 2, conn.total())
}

func TestResolver_NamesFailingOutput(t *testing.T) {
	h := testHandle("OverlayLayers", "j1")
	conn := newFakeConn().
		on(h.ResultURL("results/A"), `{"value":1}`).
		fail(h.ResultURL("results/B"), &connection.StatusError{URL: h.ResultURL("results/B"), StatusCode: 500})

	out, err := NewResolver(conn, zap.NewNop()).Resolve(context.Background(), h, map[string]types.ResultParam{
		"A": {ParamURL: "results/A"},
		"B": {ParamURL: "results/B"},
	})

	var e *OutputResolutionError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "B", e.Output)
	assert.Contains(t, err.Error(), `"B"`)
	assert.NotContains(t, err.Error(), `"A"`)
	assert.Equal(t, map[string]any{"A": float64(1)}, out)
	assert.Equal(t, 2, conn.total())
}

func TestResolver_MissingValue(t *testing.T) {
	h := testHandle("OverlayLayers", "j1")
	conn := newFakeConn().on(h.ResultURL("out"), `{"paramName":"out"}`)

	_, err := NewResolver(conn, zap.NewNop()).Resolve(context.Background(), h, map[string]types.ResultParam{
		"out": {ParamURL: "out"},
	})
	var e *OutputResolutionError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "out", e.Output)
	assert.ErrorIs(t, err, ErrMissingValue)
}

func TestResolver_NullValueIsResolved(t *testing.T) {
	h := testHandle("OverlayLayers", "j1")
	conn := newFakeConn().on(h.ResultURL("out"), `{"value":null}`)

	out, err := NewResolver(conn, zap.NewNop()).Resolve(context.Background(), h, map[string]types.ResultParam{
		"out": {ParamURL: "out"},
	})
	require.NoError(t, err)
	v, ok := out["out"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestResolver_Malformed(t *testing.T) {
	h := testHandle("OverlayLayers", "j1")
	r := NewResolver(newFakeConn(), zap.NewNop())

	t.Run("empty descriptor", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), h, nil)
		var e *MalformedResultError
		require.ErrorAs(t, err, &e)
		assert.Empty(t, e.Output)
	})

	t.Run("entry without paramUrl", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), h, map[string]types.ResultParam{
			"A": {ParamURL: "a"},
			"B": {},
		})
		var e *MalformedResultError
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "B", e.Output)
	})

	t.Run("unknown output requested", func(t *testing.T) {
		_, err := r.ResolveOnly(context.Background(), h, map[string]types.ResultParam{"A": {ParamURL: "a"}}, "Z")
		var e *MalformedResultError
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "Z", e.Output)
	})
}

func TestResolver_ResolveOnly(t *testing.T) {
	h := testHandle("ExtractData", "j1")
	conn := newFakeConn().on(h.ResultURL("results/contentID"), `{"value":{"itemId":"x"}}`)

	out, err := NewResolver(conn, zap.NewNop()).ResolveOnly(context.Background(), h, map[string]types.ResultParam{
		"contentID": {ParamURL: "results/contentID"},
		"report":    {ParamURL: "results/report"},
	}, "contentID", "contentID")
	require.NoError(t, err)

	assert.Len(t, out, 1)
	assert.Equal(t, 1, conn.total())
}
