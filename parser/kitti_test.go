package parser

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/labelforge/interchange/annotation"
	"github.com/labelforge/interchange/transform"
)

// The standard lidar-to-camera axis permutation with identity rectification
// and a zero P2 translation column, so the working extrinsic is exactly
// Tr_velo_to_cam.
const testKITTICalib = `P0: 700 0 620 0 0 700 180 0 0 0 1 0
P1: 700 0 620 0 0 700 180 0 0 0 1 0
P2: 700 0 620 0 0 700 180 0 0 0 1 0
P3: 700 0 620 0 0 700 180 0 0 0 1 0
R0_rect: 1 0 0 0 1 0 0 0 1
Tr_velo_to_cam: 0 -1 0 0 0 0 -1 0 1 0 0 0
`

// One car plus lines that must be dropped on import. The car line carries the
// camera-frame bottom center of a lidar box centered at (10, 5, 0) with
// length 4, width 2, height 1.5 and yaw 0.
const testKITTILabels = `Car 0.10 2 -1.11 500.00 150.00 700.00 300.00 1.50 2.00 4.00 -5.00 0.75 10.00 -1.57 0.87
DontCare -1 -1 -10 10.00 20.00 30.00 40.00 -1 -1 -1 -1000 -1000 -1000 -10
Misc 0.00 0 0.00 1.00 2.00 3.00 4.00 1.00 1.00 1.00 0.00 0.00 5.00 0.00
`

func writeKITTITree(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	for _, dir := range []string{"calib", "image_2", "label_2", "velodyne"} {
		test.That(t, os.MkdirAll(filepath.Join(src, dir), 0o755), test.ShouldBeNil)
	}
	test.That(t, os.WriteFile(filepath.Join(src, "calib", "000001.txt"), []byte(testKITTICalib), 0o644), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(src, "label_2", "000001.txt"), []byte(testKITTILabels), 0o644), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(src, "image_2", "000001.png"), []byte("not a real png"), 0o644), test.ShouldBeNil)

	// two points of x y z intensity
	bin := make([]byte, 0, 32)
	for _, v := range []float32{1, 2, 3, 0.5, 4, 5, 6, 0.25} {
		bin = binary.LittleEndian.AppendUint32(bin, math.Float32bits(v))
	}
	test.That(t, os.WriteFile(filepath.Join(src, "velodyne", "000001.bin"), bin, 0o644), test.ShouldBeNil)
	return src
}

func TestFromKITTI(t *testing.T) {
	src := writeKITTITree(t)
	out := t.TempDir()
	p := NewParser(src, golog.NewTestLogger(t))
	test.That(t, p.Parse("kitti", out), test.ShouldBeNil)

	raw, err := os.ReadFile(filepath.Join(out, "result", "000001.json"))
	test.That(t, err, test.ShouldBeNil)
	var result annotation.ResultInfo
	test.That(t, json.Unmarshal(raw, &result), test.ShouldBeNil)
	test.That(t, result.SourceType, test.ShouldEqual, "EXTERNAL_GROUND_TRUTH")
	test.That(t, result.SourceName, test.ShouldEqual, "kitti")

	// the DontCare and Misc lines never produce objects
	test.That(t, len(result.Objects), test.ShouldEqual, 2)
	box, rect := result.Objects[0], result.Objects[1]
	test.That(t, box.Type, test.ShouldEqual, annotation.Tool3DBox)
	test.That(t, rect.Type, test.ShouldEqual, annotation.Tool2DRect)

	// the 3D box and its projected rectangle share a fresh track
	test.That(t, box.TrackID, test.ShouldNotBeEmpty)
	test.That(t, box.TrackID, test.ShouldEqual, rect.TrackID)
	test.That(t, box.TrackName, test.ShouldEqual, "1")
	test.That(t, box.ClassName, test.ShouldEqual, "Car")

	// the original lidar-frame box is recovered within export precision
	test.That(t, box.Contour.Center3D.X, test.ShouldAlmostEqual, 10, 0.02)
	test.That(t, box.Contour.Center3D.Y, test.ShouldAlmostEqual, 5, 0.02)
	test.That(t, box.Contour.Center3D.Z, test.ShouldAlmostEqual, 0, 0.02)
	test.That(t, box.Contour.Size3D.X, test.ShouldAlmostEqual, 4, 0.02)
	test.That(t, box.Contour.Size3D.Y, test.ShouldAlmostEqual, 2, 0.02)
	test.That(t, box.Contour.Size3D.Z, test.ShouldAlmostEqual, 1.5, 0.02)
	test.That(t, box.Contour.Rotation3D.Z, test.ShouldAlmostEqual, 0, 0.02)

	test.That(t, box.AttributeFloat("truncated"), test.ShouldAlmostEqual, 0.1)
	test.That(t, box.AttributeFloat("occluded"), test.ShouldEqual, 2)
	test.That(t, *box.ModelConfidence, test.ShouldAlmostEqual, 0.87)

	test.That(t, rect.Contour.ViewIndex, test.ShouldEqual, 0)
	test.That(t, rect.Contour.Points, test.ShouldResemble, []annotation.Point{{X: 500, Y: 150}, {X: 700, Y: 300}})

	// side files: image copied, lidar transcoded, calibration re-emitted
	_, err = os.Stat(filepath.Join(out, "image", "000001.png"))
	test.That(t, err, test.ShouldBeNil)

	pcd, err := os.ReadFile(filepath.Join(out, "point_cloud", "000001.pcd"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.Contains(string(pcd), "POINTS 2"), test.ShouldBeTrue)

	cfg, err := os.ReadFile(filepath.Join(out, "camera_config", "000001.json"))
	test.That(t, err, test.ShouldBeNil)
	calibs, err := transform.ParseCameraConfig(cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(calibs), test.ShouldEqual, 1)
	test.That(t, calibs[0].Intrinsics.Fx, test.ShouldEqual, 700)
	test.That(t, calibs[0].Intrinsics.Cy, test.ShouldEqual, 180)
}

func TestFromKITTIMissingCalib(t *testing.T) {
	src := t.TempDir()
	test.That(t, os.MkdirAll(filepath.Join(src, "label_2"), 0o755), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(src, "label_2", "000001.txt"), []byte(testKITTILabels), 0o644), test.ShouldBeNil)

	p := NewParser(src, golog.NewTestLogger(t))
	err := p.Parse("kitti", t.TempDir())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing calibration")
}

func TestFromKITTIEmpty(t *testing.T) {
	p := NewParser(t.TempDir(), golog.NewTestLogger(t))
	err := p.Parse("kitti", t.TempDir())
	test.That(t, err, test.ShouldNotBeNil)
}
