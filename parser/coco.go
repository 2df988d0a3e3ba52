package parser

import (
	"path/filepath"
	"strconv"

	"github.com/labelforge/interchange/annotation"
	"github.com/labelforge/interchange/sdkerr"
)

type cocoImportImage struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
}

type cocoImportCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type cocoImportAnnotation struct {
	ID           int       `json:"id"`
	ImageID      int       `json:"image_id"`
	CategoryID   int       `json:"category_id"`
	BBox         []float64 `json:"bbox"`
	Segmentation []float64 `json:"segmentation"`
	Keypoints    []float64 `json:"keypoints"`
}

type cocoImportDoc struct {
	Images      []cocoImportImage      `json:"images"`
	Categories  []cocoImportCategory   `json:"categories"`
	Annotations []cocoImportAnnotation `json:"annotations"`
}

// FromCOCO converts a folder holding one COCO json document and its images
// into platform upload folders: images copied under image/, one result
// document per image under result/.
func (p *Parser) FromCOCO(outputFolder string) error {
	images, err := listFiles(p.sourcePath, ".jpg", ".png", ".jpeg", ".bmp")
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return sdkerr.NewParserError("no image was found in the source folder")
	}
	jsonFiles, err := listFiles(p.sourcePath, ".json")
	if err != nil {
		return err
	}
	if len(jsonFiles) == 0 {
		return sdkerr.NewParserError("no coco json document was found in the source folder")
	}
	var doc cocoImportDoc
	if err := loadJSON(jsonFiles[0], &doc); err != nil {
		return err
	}

	imageDir, err := ensureDir(filepath.Join(outputFolder, "image"))
	if err != nil {
		return err
	}
	resultDir, err := ensureDir(filepath.Join(outputFolder, "result"))
	if err != nil {
		return err
	}
	for _, img := range images {
		if err := copyFile(img, filepath.Join(imageDir, filepath.Base(img))); err != nil {
			return err
		}
	}

	labels := map[int]string{}
	for _, cat := range doc.Categories {
		labels[cat.ID] = cat.Name
	}
	annosByImage := map[int][]cocoImportAnnotation{}
	for _, anno := range doc.Annotations {
		annosByImage[anno.ImageID] = append(annosByImage[anno.ImageID], anno)
	}

	for _, img := range doc.Images {
		objects := []annotation.Object{}
		for _, anno := range annosByImage[img.ID] {
			obj, ok := decodeCOCOAnnotation(anno, labels)
			if !ok {
				continue
			}
			objects = append(objects, obj)
		}
		result := annotation.ResultInfo{
			SourceType: "EXTERNAL_GROUND_TRUTH",
			SourceName: "coco",
			Objects:    objects,
		}
		path := filepath.Join(resultDir, fileStem(img.FileName)+".json")
		if err := writeJSON(path, &result); err != nil {
			return err
		}
	}
	return nil
}

// decodeCOCOAnnotation infers the tool type from the populated geometry
// field: bbox means rectangle, segmentation polygon, keypoints polyline.
// Annotations with none of the three are skipped.
func decodeCOCOAnnotation(anno cocoImportAnnotation, labels map[int]string) (annotation.Object, bool) {
	var toolType annotation.ToolType
	var points []annotation.Point
	switch {
	case len(anno.BBox) >= 4:
		toolType = annotation.ToolRectangle
		points = []annotation.Point{
			{X: anno.BBox[0], Y: anno.BBox[1]},
			{X: anno.BBox[0] + anno.BBox[2], Y: anno.BBox[1] + anno.BBox[3]},
		}
	case len(anno.Segmentation) >= 2:
		toolType = annotation.ToolPolygon
		for i := 0; i+1 < len(anno.Segmentation); i += 2 {
			points = append(points, annotation.Point{X: anno.Segmentation[i], Y: anno.Segmentation[i+1]})
		}
	case len(anno.Keypoints) >= 3:
		toolType = annotation.ToolPolyline
		// visibility flags are dropped
		for i := 0; i+2 < len(anno.Keypoints); i += 3 {
			points = append(points, annotation.Point{X: anno.Keypoints[i], Y: anno.Keypoints[i+1]})
		}
	default:
		return annotation.Object{}, false
	}

	return annotation.Object{
		Type:      toolType,
		TrackName: strconv.Itoa(anno.ID),
		ClassName: labels[anno.CategoryID],
		Contour:   annotation.Contour{Points: points},
	}, true
}
