package layers

import (
	"github.com/duke-git/lancet/v2/strutil"
)

// WGS84 is the geographic spatial reference used for geocoder output.
var WGS84 = &SpatialReference{WKID: 4326}

// SpatialReference identifies a coordinate system by well-known id or text.
type SpatialReference struct {
	WKID int
	WKT  string
}

// ToWire returns the JSON-ready representation.
func (sr *SpatialReference) ToWire() map[string]any {
	if sr == nil {
		return nil
	}
	if sr.WKID != 0 {
		return map[string]any{"wkid": sr.WKID}
	}
	return map[string]any{"wkt": sr.WKT}
}

// Extent is an axis-aligned bounding box.
type Extent struct {
	XMin, YMin, XMax, YMax float64
	SpatialReference       *SpatialReference
}

// ToWire returns the JSON-ready representation.
func (e *Extent) ToWire() map[string]any {
	if e == nil {
		return nil
	}
	out := map[string]any{
		"xmin": e.XMin,
		"ymin": e.YMin,
		"xmax": e.XMax,
		"ymax": e.YMax,
	}
	if e.SpatialReference != nil {
		out["spatialReference"] = e.SpatialReference.ToWire()
	}
	return out
}

// Context holds the environment settings that apply to an analysis.
type Context struct {
	Extent    *Extent
	OutSR     *SpatialReference
	ProcessSR *SpatialReference
}

// ToWire returns the JSON-ready representation, or nil when nothing is set.
func (c *Context) ToWire() map[string]any {
	if c == nil {
		return nil
	}
	out := map[string]any{}
	if c.Extent != nil {
		out["extent"] = c.Extent.ToWire()
	}
	if c.OutSR != nil {
		out["outSR"] = c.OutSR.ToWire()
	}
	if c.ProcessSR != nil {
		out["processSR"] = c.ProcessSR.ToWire()
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// OutputName asks the server to create a hosted layer named name. A blank name
// returns nil and the server answers with an in-memory feature collection.
func OutputName(name string) map[string]any {
	if strutil.IsBlank(name) {
		return nil
	}
	return map[string]any{
		"serviceProperties": map[string]any{"name": name},
	}
}

// OutputItem asks the server to write into an existing item.
func OutputItem(itemID string) map[string]any {
	if strutil.IsBlank(itemID) {
		return nil
	}
	return map[string]any{
		"itemProperties": map[string]any{"itemId": itemID},
	}
}
