// Package spatialmath implements the small amount of geometry shared by the
// annotation converters: angle wrapping, polygon areas, and homogeneous
// transforms between the lidar and camera frames.
package spatialmath

import "math"

// NormalizeAngle wraps an angle in radians into the interval around zero of
// width 2π, so that repeated conversions between the KITTI camera yaw and the
// platform lidar yaw never accumulate whole turns. Applying it twice is the
// same as applying it once.
func NormalizeAngle(a float64) float64 {
	return a - math.Floor((a+math.Pi)/(2*math.Pi))*2*math.Pi
}
