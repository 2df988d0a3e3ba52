// Package annotation defines the platform's per-object annotation schema and
// the record model that pairs exported data entries with their results.
package annotation

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// ToolType is the geometric kind of an annotation.
type ToolType string

// The tool types the platform emits. BOUNDING_BOX is a legacy alias of
// RECTANGLE and is treated identically by every converter.
const (
	ToolRectangle   ToolType = "RECTANGLE"
	ToolBoundingBox ToolType = "BOUNDING_BOX"
	ToolPolygon     ToolType = "POLYGON"
	ToolPolyline    ToolType = "POLYLINE"
	Tool3DBox       ToolType = "3D_BOX"
	Tool2DRect      ToolType = "2D_RECT"
)

// IsContour reports whether the tool type carries an ordered 2D point
// sequence in pixel coordinates.
func (t ToolType) IsContour() bool {
	switch t {
	case ToolRectangle, ToolBoundingBox, ToolPolygon, ToolPolyline, Tool2DRect:
		return true
	case Tool3DBox:
		return false
	}
	return false
}

// Point is a 2D pixel coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// R2 converts the point for geometry helpers.
func (p Point) R2() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// Vector3 is a 3D coordinate or extent in the lidar frame.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ClassValue is one entry of an object's attribute list. Values may be
// strings, numbers or bools depending on the ontology.
type ClassValue struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Contour carries the per-variant geometry of an object. 2D tool types
// populate Points (and ViewIndex when multiple cameras exist); 3D_BOX
// populates the center/size/rotation triple instead.
type Contour struct {
	Points     []Point  `json:"points,omitempty"`
	ViewIndex  int      `json:"viewIndex,omitempty"`
	Center3D   *Vector3 `json:"center3D,omitempty"`
	Size3D     *Vector3 `json:"size3D,omitempty"`
	Rotation3D *Vector3 `json:"rotation3D,omitempty"`
}

// Object is a single annotated object, tagged by tool type. Only the fields
// valid for the tagged variant are populated; converters dispatch on Type and
// skip types they do not understand.
type Object struct {
	Type            ToolType     `json:"type"`
	TrackID         string       `json:"trackId,omitempty"`
	TrackName       string       `json:"trackName,omitempty"`
	ClassName       string       `json:"className,omitempty"`
	ModelClass      string       `json:"modelClass,omitempty"`
	ModelConfidence *float64     `json:"modelConfidence,omitempty"`
	ClassValues     []ClassValue `json:"classValues,omitempty"`
	Contour         Contour      `json:"contour"`
}

// Label returns the class label, falling back to the model-predicted class
// and then to the literal "null". Never empty.
func (o *Object) Label() string {
	if o.ClassName != "" {
		return o.ClassName
	}
	if o.ModelClass != "" {
		return o.ModelClass
	}
	return "null"
}

// Attributes flattens the attribute list into a name→value map, or nil when
// the object has none so sparse formats can omit the field entirely.
func (o *Object) Attributes() map[string]interface{} {
	if len(o.ClassValues) == 0 {
		return nil
	}
	attrs := make(map[string]interface{}, len(o.ClassValues))
	for _, cv := range o.ClassValues {
		attrs[cv.Name] = cv.Value
	}
	return attrs
}

// AttributeFloat reads a numeric attribute by name, defaulting to 0 when the
// attribute is absent or not parsable as a number.
func (o *Object) AttributeFloat(name string) float64 {
	for _, cv := range o.ClassValues {
		if cv.Name != name {
			continue
		}
		switch v := cv.Value.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return 0
			}
			return f
		}
		return 0
	}
	return 0
}

// BBox returns the axis-aligned extrema of the contour points.
func (o *Object) BBox() (x0, y0, x1, y1 float64, err error) {
	if len(o.Contour.Points) == 0 {
		return 0, 0, 0, 0, errors.Errorf("%s object has no contour points", o.Type)
	}
	x0, y0 = o.Contour.Points[0].X, o.Contour.Points[0].Y
	x1, y1 = x0, y0
	for _, p := range o.Contour.Points[1:] {
		if p.X < x0 {
			x0 = p.X
		}
		if p.X > x1 {
			x1 = p.X
		}
		if p.Y < y0 {
			y0 = p.Y
		}
		if p.Y > y1 {
			y1 = p.Y
		}
	}
	return x0, y0, x1, y1, nil
}

// DataID is a platform data identifier. Exports have carried it both as a
// JSON number and as a string, so it unmarshals from either.
type DataID string

// UnmarshalJSON implements json.Unmarshaler.
func (d *DataID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = DataID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Errorf("dataId %s is neither a string nor a number", data)
	}
	*d = DataID(n.String())
	return nil
}

// MarshalJSON implements json.Marshaler. Identifiers that look numeric are
// written back as numbers so re-imports match the platform's own exports.
func (d DataID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(d), 10, 64); err == nil {
		return []byte(d), nil
	}
	return json.Marshal(string(d))
}

func (d DataID) String() string {
	return string(d)
}

// DataInfo describes one logical data item of an export: a single image, or
// one point-cloud frame with its camera images. Read-only here.
type DataInfo struct {
	ID              DataID   `json:"dataId"`
	Name            string   `json:"name"`
	Width           int      `json:"width,omitempty"`
	Height          int      `json:"height,omitempty"`
	ImageURL        string   `json:"imageUrl,omitempty"`
	PointCloudURL   string   `json:"pointCloudUrl,omitempty"`
	CameraConfigURL string   `json:"cameraConfigUrl,omitempty"`
	CameraImageURLs []string `json:"cameraImageUrls,omitempty"`
}

// FileStem is the per-item output file name used by the one-file-per-image
// writers.
func (d *DataInfo) FileStem() string {
	return fmt.Sprintf("%s-%s", d.Name, d.ID)
}

// ResultInfo is the annotation result linked to one data item. A result
// assembled from several shards has all shards' objects concatenated in
// order, with the remaining metadata taken from the first shard.
type ResultInfo struct {
	DataID     DataID   `json:"dataId"`
	SourceType string   `json:"sourceType,omitempty"`
	SourceName string   `json:"sourceName,omitempty"`
	Objects    []Object `json:"objects"`
}

// Record pairs one data item with its (possibly absent) result. Records are
// created during reconstitution and immutable afterward.
type Record struct {
	Data   DataInfo
	Result *ResultInfo
}

// HasResult reports whether the record's result is present.
func (r *Record) HasResult() bool {
	return r.Result != nil
}

// Objects returns the result's object list, or nothing for an empty result.
func (r *Record) Objects() []Object {
	if r.Result == nil {
		return nil
	}
	return r.Result.Objects
}
