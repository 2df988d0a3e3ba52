package converter

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/geo/r2"

	"github.com/labelforge/interchange/annotation"
	"github.com/labelforge/interchange/sdkerr"
	"github.com/labelforge/interchange/spatialmath"
)

type cocoInfo struct {
	Contributor string `json:"contributor"`
	DateCreated string `json:"date_created"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Year        string `json:"year"`
	Version     string `json:"version"`
}

type cocoImage struct {
	ID           int     `json:"id"`
	License      int     `json:"license"`
	FileName     string  `json:"file_name"`
	SourceURL    string  `json:"source_url"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	DateCaptured *string `json:"date_captured"`
}

type cocoCategory struct {
	ID            int               `json:"id"`
	Name          string            `json:"name"`
	Supercategory string            `json:"supercategory"`
	Attributes    map[string]string `json:"attributes"`
}

type cocoAnnotation struct {
	ID           int                    `json:"id"`
	ImageID      int                    `json:"image_id"`
	CategoryID   int                    `json:"category_id"`
	Segmentation []int                  `json:"segmentation"`
	Area         *int                   `json:"area,omitempty"`
	BBox         []int                  `json:"bbox"`
	Keypoints    []int                  `json:"keypoints,omitempty"`
	NumKeypoints int                    `json:"num_keypoints,omitempty"`
	IsCrowd      int                    `json:"iscrowd"`
	Attributes   map[string]interface{} `json:"attributes,omitempty"`
	Score        *float64               `json:"score,omitempty"`
}

type cocoDocument struct {
	Info        cocoInfo         `json:"info"`
	Licenses    []interface{}    `json:"licenses"`
	Images      []cocoImage      `json:"images"`
	Annotations []cocoAnnotation `json:"annotations"`
	Categories  []cocoCategory   `json:"categories"`
}

// ToCOCO writes one COCO json document covering every record. A record with
// an empty result still contributes an image entry with no annotations.
func (c *Converter) ToCOCO(records []annotation.Record, datasetName, exportFolder string) error {
	doc := cocoDocument{
		Licenses:    []interface{}{},
		Images:      []cocoImage{},
		Annotations: []cocoAnnotation{},
		Categories:  []cocoCategory{},
	}
	categories := annotation.NewCategoryTable()

	objectID := 0
	for imgID, rec := range records {
		for i := range rec.Objects() {
			obj := &rec.Objects()[i]
			label := obj.Label()
			_, seen := categories.Lookup(label)
			categoryID := categories.ID(label)
			if !seen {
				doc.Categories = append(doc.Categories, cocoCategory{
					ID:            categoryID,
					Name:          label,
					Supercategory: "",
					Attributes:    map[string]string{},
				})
			}

			anno, ok, err := encodeCOCOObject(obj, objectID, imgID, categoryID)
			if err != nil {
				return sdkerr.WrapConverter(err, "building coco annotation")
			}
			if !ok {
				continue
			}
			doc.Annotations = append(doc.Annotations, anno)
			objectID++
		}

		doc.Images = append(doc.Images, cocoImage{
			ID:        imgID,
			License:   0,
			FileName:  fileNameFromURL(rec.Data.ImageURL),
			SourceURL: rec.Data.ImageURL,
			Width:     rec.Data.Width,
			Height:    rec.Data.Height,
		})
	}

	now := time.Now().UTC()
	doc.Info = cocoInfo{
		Contributor: "",
		DateCreated: now.Format("2006-01-02T15:04:05Z"),
		Description: fmt.Sprintf("Dataset %s exported to COCO format", datasetName),
		URL:         "https://github.com/labelforge/interchange",
		Year:        now.Format("2006"),
		Version:     Version,
	}

	out, err := json.MarshalIndent(&doc, "", " ")
	if err != nil {
		return sdkerr.WrapConverter(err, "encoding coco document")
	}
	path := filepath.Join(exportFolder, fmt.Sprintf("%s_coco.json", datasetName))
	return os.WriteFile(path, out, 0o644)
}

// encodeCOCOObject maps one platform object onto a COCO annotation. Unknown
// tool types are skipped (ok=false), not an error.
func encodeCOCOObject(obj *annotation.Object, objectID, imageID, categoryID int) (cocoAnnotation, bool, error) {
	anno := cocoAnnotation{
		ID:           objectID,
		ImageID:      imageID,
		CategoryID:   categoryID,
		Segmentation: []int{},
		BBox:         []int{},
		IsCrowd:      0,
	}

	switch obj.Type {
	case annotation.ToolRectangle, annotation.ToolBoundingBox:
		x0, y0, x1, y1, err := obj.BBox()
		if err != nil {
			return anno, false, err
		}
		width := roundInt(x1) - roundInt(x0)
		height := roundInt(y1) - roundInt(y0)
		area := width * height
		anno.BBox = []int{roundInt(x0), roundInt(y0), width, height}
		anno.Area = &area

	case annotation.ToolPolygon:
		pts := obj.Contour.Points
		if len(pts) == 0 {
			return anno, false, fmt.Errorf("polygon object has no contour points")
		}
		r2pts := make([]r2.Point, 0, len(pts))
		for _, p := range pts {
			anno.Segmentation = append(anno.Segmentation, roundInt(p.X), roundInt(p.Y))
			r2pts = append(r2pts, p.R2())
		}
		area := roundInt(spatialmath.ShoelaceArea(r2pts))
		anno.Area = &area

	case annotation.ToolPolyline:
		pts := obj.Contour.Points
		if len(pts) == 0 {
			return anno, false, fmt.Errorf("polyline object has no contour points")
		}
		for _, p := range pts {
			anno.Keypoints = append(anno.Keypoints, roundInt(p.X), roundInt(p.Y), 2)
		}
		anno.NumKeypoints = len(pts)

	case annotation.Tool3DBox, annotation.Tool2DRect:
		return anno, false, nil
	default:
		return anno, false, nil
	}

	anno.Attributes = obj.Attributes()
	anno.Score = obj.ModelConfidence
	return anno, true, nil
}

func roundInt(f float64) int {
	return int(math.Round(f))
}
