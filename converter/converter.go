// Package converter exports reconstituted annotation records into third-party
// interchange formats: COCO, VOC, LabelMe, KITTI, and the platform's own
// per-object JSON schema.
package converter

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/labelforge/interchange/annotation"
	"github.com/labelforge/interchange/archive"
	"github.com/labelforge/interchange/sdkerr"
)

// Version is stamped into provenance blocks of exported documents.
const Version = "0.1.0"

// FormatInfo describes one supported target format.
type FormatInfo struct {
	Description string `json:"description"`
	Tags        string `json:"tags,omitempty"`
}

// SupportedFormats lists the conversion targets and what they can carry.
func SupportedFormats() map[string]FormatInfo {
	return map[string]FormatInfo{
		"JSON": {
			Description: "Platform standard json format.",
			Tags:        "All types of labeling tasks.",
		},
		"COCO": {
			Description: "COCO object detection/segmentation json, one document per run.",
			Tags:        "Rectangles, polygons, polyline segments in image tasks.",
		},
		"VOC": {
			Description: "Pascal VOC xml, one document per image.",
			Tags:        "Rectangles in image tasks.",
		},
		"LABELME": {
			Description: "LabelMe json with embedded image data, one document per image.",
			Tags:        "Rectangles, polygons, polyline segments in image tasks.",
		},
		"KITTI": {
			Description: "KITTI label files, one per camera view per frame.",
			Tags:        "3D boxes with projected rectangles in lidar-fusion tasks.",
		},
		"KITTI_ALL": {
			Description: "KITTI label files plus velodyne data, camera images and calibration.",
			Tags:        "3D boxes with projected rectangles in lidar-fusion tasks.",
		},
	}
}

// Converter performs format exports. The zero fetch function uses plain HTTP
// with no timeout; a caller wanting bounded latency supplies its own.
type Converter struct {
	logger golog.Logger
	fetch  func(url string) ([]byte, error)
}

// NewConverter returns a Converter logging through the given logger.
func NewConverter(logger golog.Logger) *Converter {
	return &Converter{logger: logger, fetch: fetchURL}
}

func fetchURL(url string) ([]byte, error) {
	//nolint:gosec,noctx
	resp, err := http.Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", url)
	}
	defer utils.UncheckedErrorFunc(resp.Body.Close)
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Result is one reconstituted export: the record list plus the dataset name
// derived from the archive file name.
type Result struct {
	DatasetName string
	Records     []annotation.Record

	conv *Converter
}

// NewResultFromZip reconstitutes a platform export archive. dropUnmatched
// omits records with no annotation result.
func NewResultFromZip(zipPath string, dropUnmatched bool, logger golog.Logger) (*Result, error) {
	records, err := archive.Reconstitute(zipPath, archive.Options{DropUnmatched: dropUnmatched})
	if err != nil {
		return nil, err
	}
	return &Result{
		DatasetName: archive.DatasetName(zipPath),
		Records:     records,
		conv:        NewConverter(logger),
	}, nil
}

// NewResult wraps an already reconstituted record list.
func NewResult(datasetName string, records []annotation.Record, logger golog.Logger) *Result {
	return &Result{DatasetName: datasetName, Records: records, conv: NewConverter(logger)}
}

// Head returns the first n records.
func (r *Result) Head(n int) []annotation.Record {
	if n > len(r.Records) {
		n = len(r.Records)
	}
	return r.Records[:n]
}

// Tail returns the last n records.
func (r *Result) Tail(n int) []annotation.Record {
	if n > len(r.Records) {
		n = len(r.Records)
	}
	return r.Records[len(r.Records)-n:]
}

// ToDict renders the records as generic maps, the shape callers inspecting an
// export interactively expect.
func (r *Result) ToDict() ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0, len(r.Records))
	for i := range r.Records {
		rec := &r.Records[i]
		raw, err := json.Marshal(map[string]interface{}{
			"data":   rec.Data,
			"result": rec.Result,
		})
		if err != nil {
			return nil, errors.Wrap(err, "encoding record")
		}
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Convert writes the records to exportFolder in the named target format. The
// format name is case-insensitive. Any failure aborts the whole pass.
func (r *Result) Convert(format, exportFolder string) error {
	if exportFolder == "" {
		return sdkerr.NewParamError("no export folder given")
	}
	if err := os.MkdirAll(exportFolder, 0o755); err != nil {
		return errors.Wrap(err, "creating export folder")
	}
	switch strings.ToUpper(format) {
	case "JSON":
		return r.conv.ToJSON(r.Records, exportFolder)
	case "COCO":
		return r.conv.ToCOCO(r.Records, r.DatasetName, exportFolder)
	case "VOC":
		return r.conv.ToVOC(r.Records, exportFolder)
	case "LABELME", "LABEL_ME":
		return r.conv.ToLabelMe(r.Records, exportFolder)
	case "KITTI":
		return r.conv.ToKITTI(r.Records, exportFolder)
	case "KITTI_ALL":
		return r.conv.ToKITTIAll(r.Records, exportFolder)
	default:
		return sdkerr.NewConverterError("do not support this format <%s>", format)
	}
}

// fileNameFromURL extracts the final path segment of a source URL, without
// any query string.
func fileNameFromURL(url string) string {
	url, _, _ = strings.Cut(url, "?")
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}
