package transform

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/labelforge/interchange/spatialmath"
)

// lidar (x fwd, y left, z up) to camera (x right, y down, z fwd), no
// translation. The standard KITTI axis permutation.
func permutationExtrinsic(t *testing.T) *spatialmath.Transform {
	t.Helper()
	e, err := spatialmath.NewTransform([]float64{
		0, -1, 0, 0,
		0, 0, -1, 0,
		1, 0, 0, 0,
		0, 0, 0, 1,
	})
	test.That(t, err, test.ShouldBeNil)
	return e
}

func TestBottomCenter(t *testing.T) {
	bottom := BottomCenter(r3.Vector{X: 10, Y: 5, Z: 0}, 1.5)
	test.That(t, bottom, test.ShouldResemble, r3.Vector{X: 10, Y: 5, Z: -0.75})
	test.That(t, TopFromBottomCenter(bottom, 1.5), test.ShouldResemble, r3.Vector{X: 10, Y: 5, Z: 0})
}

func TestRotationYAndAlpha(t *testing.T) {
	e := permutationExtrinsic(t)

	// box straight ahead facing forward along lidar x
	center := e.Apply(r3.Vector{X: 10, Y: 0, Z: -0.75})
	ry, alpha := RotationYAndAlpha(e, 0, center)
	test.That(t, ry, test.ShouldAlmostEqual, -math.Pi/2, 1e-9)
	test.That(t, alpha, test.ShouldAlmostEqual, -math.Pi/2, 1e-9)

	// facing right in the lidar frame points along camera +x
	ry, _ = RotationYAndAlpha(e, -math.Pi/2, center)
	test.That(t, ry, test.ShouldAlmostEqual, 0, 1e-9)

	// a box off to the side shifts alpha by the viewing angle
	offCenter := e.Apply(r3.Vector{X: 10, Y: -10, Z: -0.75})
	ry, alpha = RotationYAndAlpha(e, 0, offCenter)
	test.That(t, ry, test.ShouldAlmostEqual, -math.Pi/2, 1e-9)
	test.That(t, alpha, test.ShouldAlmostEqual, -math.Pi/2-math.Pi/4, 1e-9)
}

func TestYawRoundTrip(t *testing.T) {
	e := permutationExtrinsic(t)
	inv, err := e.Inverse()
	test.That(t, err, test.ShouldBeNil)

	for yaw := -3.1; yaw <= 3.1; yaw += 0.37 {
		center := e.Apply(r3.Vector{X: 15, Y: 2, Z: 0})
		ry, _ := RotationYAndAlpha(e, yaw, center)
		back := LidarYaw(inv, ry)
		test.That(t, back, test.ShouldAlmostEqual, spatialmath.NormalizeAngle(yaw), 1e-9)
	}
}

func TestProjectToPixel(t *testing.T) {
	intr := PinholeIntrinsics{Fx: 700, Fy: 700, Cx: 620, Cy: 180}
	x, y := intr.ProjectToPixel(r3.Vector{X: 0, Y: 0, Z: 10})
	test.That(t, x, test.ShouldEqual, 620.0)
	test.That(t, y, test.ShouldEqual, 180.0)

	x, y = intr.ProjectToPixel(r3.Vector{X: 1, Y: -0.5, Z: 10})
	test.That(t, x, test.ShouldEqual, 690.0)
	test.That(t, y, test.ShouldEqual, 145.0)

	x, y = intr.ProjectToPixel(r3.Vector{})
	test.That(t, x, test.ShouldEqual, -1.0)
	test.That(t, y, test.ShouldEqual, -1.0)
}
