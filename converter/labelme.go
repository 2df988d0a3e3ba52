package converter

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/labelforge/interchange/annotation"
	"github.com/labelforge/interchange/sdkerr"
)

// labelMeVersion is the schema version of the documents we emit.
const labelMeVersion = "5.0.1"

type labelMeShape struct {
	Label      string                 `json:"label"`
	Points     [][]int                `json:"points"`
	GroupID    *int                   `json:"group_id"`
	ShapeType  string                 `json:"shape_type"`
	Flags      map[string]interface{} `json:"flags"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

type labelMeDocument struct {
	Version     string                 `json:"version"`
	Flags       map[string]interface{} `json:"flags"`
	Shapes      []labelMeShape         `json:"shapes"`
	ImagePath   string                 `json:"imagePath"`
	ImageData   string                 `json:"imageData"`
	ImageHeight int                    `json:"imageHeight"`
	ImageWidth  int                    `json:"imageWidth"`
}

var labelMeShapeTypes = map[annotation.ToolType]string{
	annotation.ToolRectangle:   "rectangle",
	annotation.ToolBoundingBox: "rectangle",
	annotation.ToolPolygon:     "polygon",
	annotation.ToolPolyline:    "polyline",
}

// ToLabelMe writes one LabelMe json document per annotated image, fetching
// each image from its source URL and embedding it as base64. Records without
// a result produce no file.
func (c *Converter) ToLabelMe(records []annotation.Record, exportFolder string) error {
	for i := range records {
		rec := &records[i]
		if !rec.HasResult() {
			continue
		}

		imgBytes, err := c.fetch(rec.Data.ImageURL)
		if err != nil {
			return sdkerr.WrapConverter(err, "embedding image")
		}

		doc := labelMeDocument{
			Version:     labelMeVersion,
			Flags:       map[string]interface{}{},
			Shapes:      []labelMeShape{},
			ImagePath:   fileNameFromURL(rec.Data.ImageURL),
			ImageData:   base64.StdEncoding.EncodeToString(imgBytes),
			ImageHeight: rec.Data.Height,
			ImageWidth:  rec.Data.Width,
		}

		for j := range rec.Objects() {
			obj := &rec.Objects()[j]
			shape, err := encodeLabelMeShape(obj)
			if err != nil {
				return sdkerr.WrapConverter(err, "building labelme shape")
			}
			doc.Shapes = append(doc.Shapes, shape)
		}

		out, err := json.MarshalIndent(&doc, "", " ")
		if err != nil {
			return sdkerr.WrapConverter(err, "encoding labelme document")
		}
		path := filepath.Join(exportFolder, rec.Data.FileStem()+".json")
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// encodeLabelMeShape maps one object to a LabelMe shape. Rectangles are
// expanded from their diagonal corners to an explicit closed quadrilateral,
// which LabelMe requires; other contours keep their points.
func encodeLabelMeShape(obj *annotation.Object) (labelMeShape, error) {
	shapeType, ok := labelMeShapeTypes[obj.Type]
	if !ok {
		return labelMeShape{}, sdkerr.NewConverterError("labelme format does not support %s objects", obj.Type)
	}

	var points [][]int
	switch obj.Type {
	case annotation.ToolRectangle, annotation.ToolBoundingBox:
		x0, y0, x1, y1, err := obj.BBox()
		if err != nil {
			return labelMeShape{}, err
		}
		points = [][]int{
			{roundInt(x0), roundInt(y0)},
			{roundInt(x1), roundInt(y0)},
			{roundInt(x1), roundInt(y1)},
			{roundInt(x0), roundInt(y1)},
		}
	default:
		for _, p := range obj.Contour.Points {
			points = append(points, []int{roundInt(p.X), roundInt(p.Y)})
		}
	}

	return labelMeShape{
		Label:      obj.Label(),
		Points:     points,
		ShapeType:  shapeType,
		Flags:      map[string]interface{}{},
		Attributes: obj.Attributes(),
	}, nil
}
