package converter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r3"

	"github.com/labelforge/interchange/annotation"
	"github.com/labelforge/interchange/pointcloud"
	"github.com/labelforge/interchange/sdkerr"
	"github.com/labelforge/interchange/transform"
)

// Attribute names carrying the KITTI truncation/occlusion flags on platform
// objects. Missing or unparsable values default to 0.
const (
	attrTruncated = "truncated"
	attrOccluded  = "occluded"
)

// dontCareLine is the placeholder emitted for a 2D rectangle with no 3D box
// sharing its track: sentinel geometry, observed image box only.
const dontCareLine = "DontCare -1 -1 -10 %.2f %.2f %.2f %.2f -1 -1 -1 -1000 -1000 -1000 -10"

// ToKITTI writes KITTI label files, one per camera view per frame, under
// label_<view>/ subfolders. Records without objects are skipped. Every file
// is buffered in full before anything is committed to disk.
func (c *Converter) ToKITTI(records []annotation.Record, exportFolder string) error {
	files := map[string]string{}
	for i := range records {
		rec := &records[i]
		if len(rec.Objects()) == 0 {
			continue
		}
		if rec.Data.CameraConfigURL == "" {
			return sdkerr.NewConverterError("record %s has no camera config", rec.Data.Name)
		}
		configBytes, err := c.fetch(rec.Data.CameraConfigURL)
		if err != nil {
			return sdkerr.WrapConverter(err, "fetching camera config")
		}
		calibs, err := transform.ParseCameraConfig(configBytes)
		if err != nil {
			return sdkerr.WrapConverter(err, "parsing camera config")
		}

		groups := annotation.GroupByTrack(rec.Objects())
		for _, group := range groups {
			group.Complete(len(calibs))
		}

		for view, calib := range calibs {
			lines, err := encodeKITTIView(groups, view, &calib)
			if err != nil {
				return err
			}
			path := filepath.Join(fmt.Sprintf("label_%d", view), rec.Data.Name+".txt")
			files[path] = strings.Join(lines, "\n") + "\n"
		}
	}

	for path, content := range files {
		full := filepath.Join(exportFolder, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// ToKITTIAll writes the label files plus the raw sensor data alongside them:
// point clouds transcoded back to the velodyne binary layout under velodyne/,
// camera images under image_<view>/, and the calibration document under
// camera_config/. Records without objects are skipped, like ToKITTI.
func (c *Converter) ToKITTIAll(records []annotation.Record, exportFolder string) error {
	if err := c.ToKITTI(records, exportFolder); err != nil {
		return err
	}
	for i := range records {
		rec := &records[i]
		if len(rec.Objects()) == 0 {
			continue
		}
		if rec.Data.PointCloudURL != "" {
			if err := c.exportVelodyne(rec, exportFolder); err != nil {
				return err
			}
		}
		for view, url := range rec.Data.CameraImageURLs {
			imgBytes, err := c.fetch(url)
			if err != nil {
				return sdkerr.WrapConverter(err, "fetching camera image")
			}
			dir := filepath.Join(exportFolder, fmt.Sprintf("image_%d", view))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			name := rec.Data.Name + filepath.Ext(fileNameFromURL(url))
			if err := os.WriteFile(filepath.Join(dir, name), imgBytes, 0o644); err != nil {
				return err
			}
		}
		configBytes, err := c.fetch(rec.Data.CameraConfigURL)
		if err != nil {
			return sdkerr.WrapConverter(err, "fetching camera config")
		}
		dir := filepath.Join(exportFolder, "camera_config")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, rec.Data.Name+".json"), configBytes, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (c *Converter) exportVelodyne(rec *annotation.Record, exportFolder string) error {
	raw, err := c.fetch(rec.Data.PointCloudURL)
	if err != nil {
		return sdkerr.WrapConverter(err, "fetching point cloud")
	}
	points, err := pointcloud.ReadPCD(bytes.NewReader(raw))
	if err != nil {
		return sdkerr.WrapConverter(err, "decoding point cloud")
	}
	var buf bytes.Buffer
	if err := pointcloud.WriteVelodyneBin(points, &buf); err != nil {
		return err
	}
	dir := filepath.Join(exportFolder, "velodyne")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, rec.Data.Name+".bin"), buf.Bytes(), 0o644)
}

// encodeKITTIView builds one view's label lines, in track first-seen order.
func encodeKITTIView(groups []*annotation.TrackGroup, view int, calib *transform.CameraCalibration) ([]string, error) {
	var lines []string
	for _, group := range groups {
		rect, observed := group.Rects[view]
		if group.Box3D == nil {
			// detected region with no 3D identity in this frame
			if observed {
				x0, y0, x1, y1, err := rect.BBox()
				if err != nil {
					return nil, sdkerr.WrapConverter(err, "building DontCare line")
				}
				lines = append(lines, fmt.Sprintf(dontCareLine, x0, y0, x1, y1))
			}
			continue
		}
		line, err := encodeKITTILine(group.Box3D, rect, calib)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// encodeKITTILine emits the 15-field KITTI label line for one 3D box and its
// rectangle in one view.
func encodeKITTILine(box, rect *annotation.Object, calib *transform.CameraCalibration) (string, error) {
	contour := box.Contour
	if contour.Center3D == nil || contour.Size3D == nil || contour.Rotation3D == nil {
		return "", sdkerr.NewConverterError("3D box %s is missing geometry", box.TrackID)
	}
	center := r3.Vector{X: contour.Center3D.X, Y: contour.Center3D.Y, Z: contour.Center3D.Z}
	length, width, height := contour.Size3D.X, contour.Size3D.Y, contour.Size3D.Z

	bottom := transform.BottomCenter(center, height)
	camCenter := calib.Extrinsic.Apply(bottom)
	ry, alpha := transform.RotationYAndAlpha(calib.Extrinsic, contour.Rotation3D.Z, camCenter)

	x0, y0, x1, y1, err := rect.BBox()
	if err != nil {
		return "", sdkerr.WrapConverter(err, "reading 2D box")
	}

	score := 1.0
	if box.ModelConfidence != nil {
		score = *box.ModelConfidence
	}

	return fmt.Sprintf("%s %.2f %d %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f",
		box.Label(),
		box.AttributeFloat(attrTruncated),
		int(box.AttributeFloat(attrOccluded)),
		alpha,
		x0, y0, x1, y1,
		height, width, length,
		camCenter.X, camCenter.Y, camCenter.Z,
		ry,
		score,
	), nil
}
