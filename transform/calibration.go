// Package transform holds the camera calibration model and the lidar/camera
// coordinate math used by the KITTI converters.
package transform

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/labelforge/interchange/spatialmath"
)

// PinholeIntrinsics are the perspective-projection parameters of one camera.
type PinholeIntrinsics struct {
	Fx float64 `json:"fx"`
	Fy float64 `json:"fy"`
	Cx float64 `json:"cx"`
	Cy float64 `json:"cy"`
}

// CameraCalibration pairs one camera's intrinsics with the 4x4 extrinsic
// mapping lidar-frame homogeneous points into its frame. Built once per
// conversion run and immutable afterward.
type CameraCalibration struct {
	Intrinsics PinholeIntrinsics
	// Extrinsic maps lidar-frame points to this camera's frame.
	Extrinsic *spatialmath.Transform
	// Rect is the rectifying rotation tracked separately from the
	// velo-to-cam transform; identity outside KITTI sources.
	Rect *spatialmath.Transform
}

// Indices of the calibration lines in a KITTI calib file. The file layout is
// fixed: P0..P3, then R0_rect, then Tr_velo_to_cam.
const (
	kittiLineP0        = 0
	kittiLineP2        = 2
	kittiLineR0Rect    = 4
	kittiLineVeloToCam = 5
	kittiCalibLines    = 6
)

// translationScale converts the projection matrices' translation column from
// centimeters to meters when composing the working extrinsic.
const translationScale = 0.01

// ParseKITTICalib reads a KITTI calibration file and builds the calibration
// for camera 2, the left color camera that label files refer to.
func ParseKITTICalib(r io.Reader) (*CameraCalibration, error) {
	lines, err := readCalibLines(r)
	if err != nil {
		return nil, err
	}

	p2, err := parseCalibLine(lines[kittiLineP2], 12)
	if err != nil {
		return nil, errors.Wrap(err, "P2")
	}
	rect, err := parseCalibLine(lines[kittiLineR0Rect], 9)
	if err != nil {
		return nil, errors.Wrap(err, "R0_rect")
	}
	veloToCam, err := parseCalibLine(lines[kittiLineVeloToCam], 12)
	if err != nil {
		return nil, errors.Wrap(err, "Tr_velo_to_cam")
	}

	// The working extrinsic is velo->cam with the camera's translation
	// column folded in, cm scaled to m.
	adjusted := make([]float64, 12)
	copy(adjusted, veloToCam)
	for row := 0; row < 3; row++ {
		adjusted[row*4+3] += p2[row*4+3] * translationScale
	}
	extrinsic, err := spatialmath.NewTransformFromRotationTranslation(adjusted)
	if err != nil {
		return nil, err
	}

	rectPadded, err := spatialmath.NewTransform([]float64{
		rect[0], rect[1], rect[2], 0,
		rect[3], rect[4], rect[5], 0,
		rect[6], rect[7], rect[8], 0,
		0, 0, 0, 1,
	})
	if err != nil {
		return nil, err
	}

	return &CameraCalibration{
		Intrinsics: PinholeIntrinsics{Fx: p2[0], Cx: p2[2], Fy: p2[5], Cy: p2[6]},
		Extrinsic:  extrinsic,
		Rect:       rectPadded,
	}, nil
}

func readCalibLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading calibration")
	}
	if len(lines) < kittiCalibLines {
		return nil, errors.Errorf("calibration file has %d lines, expected at least %d", len(lines), kittiCalibLines)
	}
	return lines, nil
}

// parseCalibLine reads the numeric fields after the "NAME:" prefix.
func parseCalibLine(line string, want int) ([]float64, error) {
	_, rest, found := strings.Cut(line, ":")
	if !found {
		rest = line
	}
	fields := strings.Fields(rest)
	if len(fields) != want {
		return nil, errors.Errorf("expected %d values, got %d", want, len(fields))
	}
	values := make([]float64, want)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "value %q", f)
		}
		values[i] = v
	}
	return values, nil
}

// cameraConfigEntry is the platform's per-camera calibration document: a
// row-major 4x4 external matrix plus the pinhole internals.
type cameraConfigEntry struct {
	CameraInternal PinholeIntrinsics `json:"camera_internal"`
	CameraExternal []float64         `json:"camera_external"`
	RowMajor       bool              `json:"rowMajor"`
}

// ParseCameraConfig decodes a platform camera-config JSON document into one
// calibration per view, in view-index order.
func ParseCameraConfig(data []byte) ([]CameraCalibration, error) {
	var entries []cameraConfigEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "malformed camera config")
	}
	calibs := make([]CameraCalibration, 0, len(entries))
	for i, entry := range entries {
		elems := entry.CameraExternal
		if len(elems) != 16 {
			return nil, errors.Errorf("camera %d: external matrix has %d elements, expected 16", i, len(elems))
		}
		if !entry.RowMajor {
			elems = transpose4(elems)
		}
		extrinsic, err := spatialmath.NewTransform(elems)
		if err != nil {
			return nil, err
		}
		calibs = append(calibs, CameraCalibration{
			Intrinsics: entry.CameraInternal,
			Extrinsic:  extrinsic,
			Rect:       spatialmath.IdentityTransform(),
		})
	}
	return calibs, nil
}

// transpose4 converts 16 column-major elements to row-major.
func transpose4(elems []float64) []float64 {
	out := make([]float64, 16)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i*4+j] = elems[j*4+i]
		}
	}
	return out
}

// MarshalCameraConfig writes calibrations back out as a platform
// camera-config document.
func MarshalCameraConfig(calibs []CameraCalibration) ([]byte, error) {
	entries := make([]cameraConfigEntry, 0, len(calibs))
	for _, c := range calibs {
		entries = append(entries, cameraConfigEntry{
			CameraInternal: c.Intrinsics,
			CameraExternal: c.Extrinsic.RowMajor(),
			RowMajor:       true,
		})
	}
	return json.MarshalIndent(entries, "", " ")
}

// FetchCameraConfig downloads and parses a camera-config document. The fetch
// is synchronous with no timeout; callers wanting bounded latency wrap it.
func FetchCameraConfig(url string) ([]CameraCalibration, error) {
	//nolint:gosec,noctx
	resp, err := http.Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching camera config %s", url)
	}
	defer utils.UncheckedErrorFunc(resp.Body.Close)
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching camera config %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return ParseCameraConfig(data)
}
