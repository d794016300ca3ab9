package geom

import "github.com/go-gl/mathgl/mgl64"

// Area returns the unnormalized normal of the triangle a,b,c (right-hand rule).
// Its length is twice the triangle area.
func Area(a, b, c mgl64.Vec3) mgl64.Vec3 {
	return b.Sub(a).Cross(c.Sub(a))
}

// SignedVolume is six times the signed volume of the tetrahedron a,b,c,d.
// It is positive when d lies on the side the normal of a,b,c points to.
//
//	     d
//	     o
//	    /|\
//	   / | o c
//	  o--o/
//	  a   b
func SignedVolume(a, b, c, d mgl64.Vec3) float64 {
	return d.Sub(a).Dot(Area(a, b, c))
}

// SignedVolumeArea is SignedVolume with the triangle normal precomputed.
func SignedVolumeArea(a, area, d mgl64.Vec3) float64 {
	return d.Sub(a).Dot(area)
}

// Determinant3 returns det[a-o b-o c-o], the orientation of triangle a,b,c seen from o.
// It is positive when o lies behind the triangle's normal.
func Determinant3(a, b, c, o mgl64.Vec3) float64 {
	return mgl64.Mat3FromCols(a.Sub(o), b.Sub(o), c.Sub(o)).Det()
}
