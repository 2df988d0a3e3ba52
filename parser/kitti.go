package parser

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/labelforge/interchange/annotation"
	"github.com/labelforge/interchange/pointcloud"
	"github.com/labelforge/interchange/sdkerr"
	"github.com/labelforge/interchange/spatialmath"
	"github.com/labelforge/interchange/transform"
)

// KITTI label lines whose class carries no usable geometry or identity.
var kittiIgnoredLabels = map[string]bool{
	"DontCare": true,
	"Misc":     true,
}

// FromKITTI converts a KITTI directory tree (calib/, image_2/, label_2/,
// velodyne/ keyed by a shared base name) into platform upload folders:
// result/, image/, point_cloud/ and camera_config/.
func (p *Parser) FromKITTI(outputFolder string) error {
	labelFiles, err := listFiles(filepath.Join(p.sourcePath, "label_2"), ".txt")
	if err != nil {
		return sdkerr.NewParserError("no label_2 folder: %s", err)
	}
	if len(labelFiles) == 0 {
		return sdkerr.NewParserError("no label files were found under label_2")
	}

	resultDir, err := ensureDir(filepath.Join(outputFolder, "result"))
	if err != nil {
		return err
	}
	imageDir, err := ensureDir(filepath.Join(outputFolder, "image"))
	if err != nil {
		return err
	}
	cloudDir, err := ensureDir(filepath.Join(outputFolder, "point_cloud"))
	if err != nil {
		return err
	}
	configDir, err := ensureDir(filepath.Join(outputFolder, "camera_config"))
	if err != nil {
		return err
	}

	for _, labelFile := range labelFiles {
		stem := fileStem(labelFile)

		calib, err := loadCalib(filepath.Join(p.sourcePath, "calib", stem+".txt"))
		if err != nil {
			return err
		}
		objects, err := parseKITTILabels(labelFile, calib)
		if err != nil {
			return err
		}

		result := annotation.ResultInfo{
			SourceType: "EXTERNAL_GROUND_TRUTH",
			SourceName: "kitti",
			Objects:    objects,
		}
		if err := writeJSON(filepath.Join(resultDir, stem+".json"), &result); err != nil {
			return err
		}

		configBytes, err := transform.MarshalCameraConfig([]transform.CameraCalibration{*calib})
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(configDir, stem+".json"), configBytes, 0o644); err != nil {
			return err
		}

		if err := p.copyFrameImage(stem, imageDir); err != nil {
			return err
		}

		binPath := filepath.Join(p.sourcePath, "velodyne", stem+".bin")
		if _, err := os.Stat(binPath); err == nil {
			pcdPath := filepath.Join(cloudDir, stem+".pcd")
			if err := pointcloud.TranscodeBinToPCD(binPath, pcdPath); err != nil {
				return err
			}
		} else {
			p.logger.Warnf("frame %s has no velodyne data", stem)
		}
	}
	return nil
}

func (p *Parser) copyFrameImage(stem, imageDir string) error {
	for _, ext := range []string{".png", ".jpg", ".jpeg"} {
		src := filepath.Join(p.sourcePath, "image_2", stem+ext)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		return copyFile(src, filepath.Join(imageDir, stem+ext))
	}
	p.logger.Warnf("frame %s has no camera image", stem)
	return nil
}

func loadCalib(path string) (*transform.CameraCalibration, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, sdkerr.NewParserError("missing calibration for %s", filepath.Base(path))
	}
	defer utils.UncheckedErrorFunc(f.Close)
	calib, err := transform.ParseKITTICalib(f)
	if err != nil {
		return nil, sdkerr.NewParserError("calibration %s: %s", filepath.Base(path), err)
	}
	return calib, nil
}

// parseKITTILabels reads one frame's label lines, reconstructing for each a
// 3D box in the lidar frame plus its companion rectangle at view 0, linked
// by a fresh track id. DontCare and Misc lines are dropped.
func parseKITTILabels(path string, calib *transform.CameraCalibration) ([]annotation.Object, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	inverse, err := calib.Extrinsic.Inverse()
	if err != nil {
		return nil, sdkerr.NewParserError("calibration for %s: %s", filepath.Base(path), err)
	}

	objects := []annotation.Object{}
	trackName := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if kittiIgnoredLabels[fields[0]] {
			continue
		}
		trackName++
		box, rect, err := decodeKITTILine(fields, inverse, strconv.Itoa(trackName))
		if err != nil {
			return nil, sdkerr.NewParserError("label %s: %s", filepath.Base(path), err)
		}
		objects = append(objects, *box, *rect)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return objects, nil
}

// decodeKITTILine is the algebraic inverse of the export transform.
func decodeKITTILine(fields []string, inverse *spatialmath.Transform, trackName string) (box, rect *annotation.Object, err error) {
	if len(fields) < 15 {
		return nil, nil, errors.Errorf("line has %d fields, expected at least 15", len(fields))
	}
	values := make([]float64, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "field %q", f)
		}
		values = append(values, v)
	}

	truncated, occluded := values[0], values[1]
	x0, y0, x1, y1 := values[3], values[4], values[5], values[6]
	height, width, length := values[7], values[8], values[9]
	camLocation := r3.Vector{X: values[10], Y: values[11], Z: values[12]}
	ry := values[13]

	bottom := inverse.Apply(camLocation)
	center := transform.TopFromBottomCenter(bottom, height)
	rz := transform.LidarYaw(inverse, ry)

	var confidence *float64
	if len(values) >= 15 {
		confidence = &values[14]
	}

	trackID := uuid.NewString()
	box = &annotation.Object{
		Type:            annotation.Tool3DBox,
		TrackID:         trackID,
		TrackName:       trackName,
		ClassName:       fields[0],
		ModelConfidence: confidence,
		ClassValues: []annotation.ClassValue{
			{Name: "truncated", Value: truncated},
			{Name: "occluded", Value: occluded},
		},
		Contour: annotation.Contour{
			Center3D:   &annotation.Vector3{X: center.X, Y: center.Y, Z: center.Z},
			Size3D:     &annotation.Vector3{X: length, Y: width, Z: height},
			Rotation3D: &annotation.Vector3{Z: rz},
		},
	}
	rect = &annotation.Object{
		Type:      annotation.Tool2DRect,
		TrackID:   trackID,
		TrackName: trackName,
		ClassName: fields[0],
		Contour: annotation.Contour{
			ViewIndex: 0,
			Points:    []annotation.Point{{X: x0, Y: y0}, {X: x1, Y: y1}},
		},
	}
	return box, rect, nil
}
