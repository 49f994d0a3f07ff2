package geometry

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// AxisAngle returns the rotation of angle radians about axis.
func AxisAngle(axis r3.Vec, angle float64) quat.Number {
	return quat.Number(r3.NewRotation(angle, axis))
}

// Rotate applies the rotation q to v. q is normalized first; a zero quaternion is
// treated as the identity.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	n := quat.Abs(q)
	if n < epsilon || math.IsNaN(n) {
		return v
	}
	return r3.Rotation(quat.Scale(1/n, q)).Rotate(v)
}

// Forward returns the +z axis of q.
func Forward(q quat.Number) r3.Vec {
	return Rotate(q, r3.Vec{Z: 1})
}

// Up returns the +y axis of q.
func Up(q quat.Number) r3.Vec {
	return Rotate(q, r3.Vec{Y: 1})
}

// LookRotation returns the rotation whose +z axis points along forward and whose
// +y axis is as close to up as possible. It reports false when forward has no
// length or is parallel to up.
func LookRotation(forward, up r3.Vec) (quat.Number, bool) {
	f, ok := Normalize(forward)
	if !ok {
		return Identity, false
	}
	right, ok := Normalize(r3.Cross(up, f))
	if !ok {
		return Identity, false
	}
	u := r3.Cross(f, right)
	return fromBasis(right, u, f), true
}

// fromBasis converts the orthonormal basis (columns x, y, z) into a quaternion.
func fromBasis(x, y, z r3.Vec) quat.Number {
	m00, m01, m02 := x.X, y.X, z.X
	m10, m11, m12 := x.Y, y.Y, z.Y
	m20, m21, m22 := x.Z, y.Z, z.Z

	var q quat.Number
	switch trace := m00 + m11 + m22; {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		q = quat.Number{Real: 0.25 * s, Imag: (m21 - m12) / s, Jmag: (m02 - m20) / s, Kmag: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		q = quat.Number{Real: (m21 - m12) / s, Imag: 0.25 * s, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: 0.25 * s, Kmag: (m12 + m21) / s}
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: 0.25 * s}
	}
	return quat.Scale(1/quat.Abs(q), q)
}
