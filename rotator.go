package variogram

import (
	"math"

	mat2d "github.com/flywave/go3d/float64/mat2"
	vec2d "github.com/flywave/go3d/float64/vec2"
)

func DegToRad(angle float64) float64 {
	return angle * math.Pi / 180
}

func RadToDeg(angle float64) float64 {
	return angle * 180 / math.Pi
}

// Rotator rotates counterclockwise by Degrees.
type Rotator struct {
	Degrees float64
}

func (r Rotator) RotateVector(v vec2d.T) vec2d.T {
	m := r.RotationMatrix()
	return vec2d.T{
		m[0][0]*v[0] + m[0][1]*v[1],
		m[1][0]*v[0] + m[1][1]*v[1],
	}
}

// RotationMatrix returns the matrix indexed [row][column].
func (r Rotator) RotationMatrix() (m mat2d.T) {
	rad := DegToRad(r.Degrees)

	c := math.Cos(rad)
	s := math.Sin(rad)

	m[0][0] = c
	m[0][1] = -s
	m[1][0] = s
	m[1][1] = c

	return m
}

// directionMask keeps the pairs whose separation deviates from azimuth by at
// most tolerance/2 degrees. Azimuth is measured counterclockwise from the x
// axis and pairs are undirected, so deviations are folded into [0, 90].
func directionMask(vec [][2]float64, azimuth, tolerance float64) []bool {
	r := Rotator{-azimuth}
	half := tolerance / 2

	keep := make([]bool, len(vec))
	for k, v := range vec {
		w := r.RotateVector(vec2d.T{v[0], v[1]})
		dev := RadToDeg(math.Atan2(math.Abs(w[1]), math.Abs(w[0])))
		keep[k] = dev <= half
	}
	return keep
}
