package converter

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/labelforge/interchange/annotation"
	"github.com/labelforge/interchange/sdkerr"
)

type vocSource struct {
	Database string `xml:"database"`
}

type vocSize struct {
	Width  int `xml:"width"`
	Height int `xml:"height"`
	Depth  int `xml:"depth"`
}

type vocBndBox struct {
	XMin int `xml:"xmin"`
	YMin int `xml:"ymin"`
	XMax int `xml:"xmax"`
	YMax int `xml:"ymax"`
}

// vocAttribute renders an attribute-map entry as an ad hoc child element of
// <object> named after the attribute key.
type vocAttribute struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type vocObject struct {
	Supercategory string         `xml:"supercategory"`
	Name          string         `xml:"name"`
	Pose          string         `xml:"pose"`
	Truncated     int            `xml:"truncated"`
	Difficult     int            `xml:"difficult"`
	Attributes    []vocAttribute `xml:",any"`
	BndBox        vocBndBox      `xml:"bndbox"`
}

type vocAnnotation struct {
	XMLName   xml.Name    `xml:"annotation"`
	Folder    string      `xml:"folder"`
	Filename  string      `xml:"filename"`
	Source    vocSource   `xml:"source"`
	Size      vocSize     `xml:"size"`
	Segmented int         `xml:"segmented"`
	Objects   []vocObject `xml:"object"`
}

// ToVOC writes one Pascal VOC xml document per annotated image. Only
// rectangle objects are representable; other tool types are skipped with a
// warning. Records without a result produce no file.
func (c *Converter) ToVOC(records []annotation.Record, exportFolder string) error {
	for i := range records {
		rec := &records[i]
		if !rec.HasResult() {
			continue
		}
		doc, err := c.encodeVOCRecord(rec)
		if err != nil {
			return sdkerr.WrapConverter(err, "building voc document")
		}
		out, err := xml.MarshalIndent(doc, "", "  ")
		if err != nil {
			return sdkerr.WrapConverter(err, "encoding voc document")
		}
		path := filepath.Join(exportFolder, rec.Data.FileStem()+".xml")
		if err := os.WriteFile(path, append([]byte(xml.Header), out...), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (c *Converter) encodeVOCRecord(rec *annotation.Record) (*vocAnnotation, error) {
	fileName := fileNameFromURL(rec.Data.ImageURL)
	doc := &vocAnnotation{
		Folder:    fileName,
		Filename:  fileName,
		Source:    vocSource{Database: "Unknown"},
		Size:      vocSize{Width: rec.Data.Width, Height: rec.Data.Height, Depth: 3},
		Segmented: 0,
	}

	for i := range rec.Objects() {
		obj := &rec.Objects()[i]
		switch obj.Type {
		case annotation.ToolRectangle, annotation.ToolBoundingBox:
		default:
			c.logger.Warnf("voc format does not support %s objects, skipping", obj.Type)
			continue
		}

		x0, y0, x1, y1, err := obj.BBox()
		if err != nil {
			return nil, err
		}
		vocObj := vocObject{
			Name: obj.Label(),
			Pose: "Unspecified",
			BndBox: vocBndBox{
				XMin: roundInt(x0), YMin: roundInt(y0),
				XMax: roundInt(x1), YMax: roundInt(y1),
			},
		}
		for _, cv := range obj.ClassValues {
			vocObj.Attributes = append(vocObj.Attributes, vocAttribute{
				XMLName: xml.Name{Local: cv.Name},
				Value:   fmt.Sprint(cv.Value),
			})
		}
		doc.Objects = append(doc.Objects, vocObj)
	}
	return doc, nil
}
