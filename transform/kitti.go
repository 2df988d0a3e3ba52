package transform

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/labelforge/interchange/spatialmath"
)

// The KITTI angle math is numerically delicate: wraparound and sign
// conventions are tied to the axis conventions of the two frames. It is kept
// here as pure functions so it can be tested independently of file I/O.

// BottomCenter lowers a box center to the center of its bottom face, the
// reference point KITTI locations use.
func BottomCenter(center r3.Vector, height float64) r3.Vector {
	return r3.Vector{X: center.X, Y: center.Y, Z: center.Z - height/2}
}

// TopFromBottomCenter reverses BottomCenter.
func TopFromBottomCenter(bottom r3.Vector, height float64) r3.Vector {
	return r3.Vector{X: bottom.X, Y: bottom.Y, Z: bottom.Z + height/2}
}

// RotationYAndAlpha derives the KITTI rotation_y and observation angle alpha
// for a box with lidar-frame yaw rz observed by the camera with the given
// extrinsic. camCenter is the box center already in the camera frame.
func RotationYAndAlpha(extrinsic *spatialmath.Transform, rz float64, camCenter r3.Vector) (ry, alpha float64) {
	direction := r3.Vector{X: math.Cos(rz), Y: math.Sin(rz), Z: 0}
	delta := extrinsic.Apply(direction).Sub(extrinsic.Apply(r3.Vector{}))
	ry = -spatialmath.NormalizeAngle(math.Atan2(delta.Z, delta.X))
	theta := spatialmath.NormalizeAngle(math.Atan2(camCenter.X, camCenter.Z))
	alpha = spatialmath.NormalizeAngle(ry - theta)
	return ry, alpha
}

// LidarYaw recovers the lidar-frame yaw rz from a KITTI rotation_y, the
// algebraic inverse of RotationYAndAlpha. inverse is the camera-to-lidar
// transform, i.e. the inverted extrinsic.
func LidarYaw(inverse *spatialmath.Transform, ry float64) float64 {
	direction := r3.Vector{X: math.Cos(-ry), Y: 0, Z: math.Sin(-ry)}
	delta := inverse.Apply(direction).Sub(inverse.Apply(r3.Vector{}))
	return spatialmath.NormalizeAngle(math.Atan2(delta.Y, delta.X))
}

// ProjectToPixel projects a camera-frame point onto the image plane.
func (p PinholeIntrinsics) ProjectToPixel(pt r3.Vector) (x, y float64) {
	if pt.Z == 0 {
		return -1, -1
	}
	return (pt.X/pt.Z)*p.Fx + p.Cx, (pt.Y/pt.Z)*p.Fy + p.Cy
}
