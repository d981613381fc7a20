package nifti

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mrsinham/dicom2nifti/internal/neuro"
)

// ConvertDicomToNifti rewrites the sto_xyz affine from the DICOM patient
// convention (LPS) to the NIfTI convention (RAS), flipping the Y axis so that
// DICOM row 0 maps to NIfTI row ny-1.
// https://github.com/rordenlab/dcm2niix/blob/master/console/nii_dicom.cpp
func (img *Image) ConvertDicomToNifti() {
	for r := 0; r < 2; r++ {
		for c := 0; c < 4; c++ {
			img.StoXYZ[r][c] = -img.StoXYZ[r][c]
		}
	}

	// "nii_flipY()" in dcm2niix
	for r := 0; r < 3; r++ {
		img.StoXYZ[r][3] += img.StoXYZ[r][1] * float64(img.Ny-1)
	}
	for r := 0; r < 3; r++ {
		img.StoXYZ[r][1] = -img.StoXYZ[r][1]
	}
}

// ComputeQuaternion derives the quaternion form of the sto_xyz affine, stores
// qfac in pixdim[0] and mirrors the grid spacings into pixdim[1..3]. When none
// of the three quaternion components exceeds the single-precision epsilon,
// all three are negated.
func (img *Image) ComputeQuaternion() {
	img.StoXYZ[3][0] = 0
	img.StoXYZ[3][1] = 0
	img.StoXYZ[3][2] = 0
	img.StoXYZ[3][3] = 1

	qb, qc, qd, qx, qy, qz, dx, dy, dz, qfac := Mat44ToQuatern(img.StoXYZ)

	if qb <= neuro.FloatEpsilon &&
		qc <= neuro.FloatEpsilon &&
		qd <= neuro.FloatEpsilon {
		qb = -qb
		qc = -qc
		qd = -qd
	}

	img.QuaternB = qb
	img.QuaternC = qc
	img.QuaternD = qd
	img.QoffsetX = qx
	img.QoffsetY = qy
	img.QoffsetZ = qz
	img.QFac = qfac
	img.Dx = dx
	img.Dy = dy
	img.Dz = dz
	img.PixDim[0] = qfac
	img.PixDim[1] = dx
	img.PixDim[2] = dy
	img.PixDim[3] = dz
}

// Mat44ToQuatern decomposes a 4x4 voxel-to-space affine into the NIfTI
// quaternion representation: rotation (qb, qc, qd), offset (qx, qy, qz), grid
// spacings (dx, dy, dz) and the handedness factor qfac. This is the
// "nifti_mat44_to_quatern" conversion of the NIfTI-1 reference library.
func Mat44ToQuatern(m [4][4]float64) (qb, qc, qd, qx, qy, qz, dx, dy, dz, qfac float64) {
	qx = m[0][3]
	qy = m[1][3]
	qz = m[2][3]

	r11, r12, r13 := m[0][0], m[0][1], m[0][2]
	r21, r22, r23 := m[1][0], m[1][1], m[1][2]
	r31, r32, r33 := m[2][0], m[2][1], m[2][2]

	// Column lengths determine the grid spacings
	xd := math.Sqrt(r11*r11 + r21*r21 + r31*r31)
	yd := math.Sqrt(r12*r12 + r22*r22 + r32*r32)
	zd := math.Sqrt(r13*r13 + r23*r23 + r33*r33)

	if xd == 0 {
		r11, r21, r31, xd = 1, 0, 0, 1
	}
	if yd == 0 {
		r22, r12, r32, yd = 1, 0, 0, 1
	}
	if zd == 0 {
		r33, r13, r23, zd = 1, 0, 0, 1
	}

	dx, dy, dz = xd, yd, zd

	r11, r21, r31 = r11/xd, r21/xd, r31/xd
	r12, r22, r32 = r12/yd, r22/yd, r32/yd
	r13, r23, r33 = r13/zd, r23/zd, r33/zd

	// The columns are normalized but not necessarily orthogonal, so take the
	// closest orthogonal matrix through a polar decomposition
	p := mat33Polar(mat.NewDense(3, 3, []float64{
		r11, r12, r13,
		r21, r22, r23,
		r31, r32, r33,
	}))

	r11, r12, r13 = p.At(0, 0), p.At(0, 1), p.At(0, 2)
	r21, r22, r23 = p.At(1, 0), p.At(1, 1), p.At(1, 2)
	r31, r32, r33 = p.At(2, 0), p.At(2, 1), p.At(2, 2)

	// The determinant tells whether the rotation is proper
	det := r11*r22*r33 - r11*r32*r23 - r21*r12*r33 +
		r21*r32*r13 + r31*r12*r23 - r31*r22*r13

	if det > 0 {
		qfac = 1
	} else {
		qfac = -1
		r13, r23, r33 = -r13, -r23, -r33
	}

	a := r11 + r22 + r33 + 1
	var b, c, d float64
	if a > 0.5 {
		a = 0.5 * math.Sqrt(a)
		b = 0.25 * (r32 - r23) / a
		c = 0.25 * (r13 - r31) / a
		d = 0.25 * (r21 - r12) / a
	} else {
		xd = 1 + r11 - (r22 + r33)
		yd = 1 + r22 - (r11 + r33)
		zd = 1 + r33 - (r11 + r22)
		switch {
		case xd > 1:
			b = 0.5 * math.Sqrt(xd)
			c = 0.25 * (r12 + r21) / b
			d = 0.25 * (r13 + r31) / b
			a = 0.25 * (r32 - r23) / b
		case yd > 1:
			c = 0.5 * math.Sqrt(yd)
			b = 0.25 * (r12 + r21) / c
			d = 0.25 * (r23 + r32) / c
			a = 0.25 * (r13 - r31) / c
		default:
			d = 0.5 * math.Sqrt(zd)
			b = 0.25 * (r13 + r31) / d
			c = 0.25 * (r23 + r32) / d
			a = 0.25 * (r21 - r12) / d
		}
		if a < 0 {
			b, c, d = -b, -c, -d
		}
	}

	qb, qc, qd = b, c, d
	return
}

// mat33Polar returns the orthogonal matrix closest to a, by the iterative
// polar decomposition of the NIfTI-1 reference library.
func mat33Polar(a *mat.Dense) *mat.Dense {
	x := mat.DenseCopyOf(a)

	// Force the matrix to be nonsingular
	gam := mat.Det(x)
	for gam == 0 {
		gam = 0.00001 * (0.001 + mat.Norm(x, math.Inf(1)))
		for i := 0; i < 3; i++ {
			x.Set(i, i, x.At(i, i)+gam)
		}
		gam = mat.Det(x)
	}

	z := mat.NewDense(3, 3, nil)
	dif := 1.0

	for k := 0; ; k++ {
		var y mat.Dense
		if err := y.Inverse(x); err != nil {
			// Perturbed above, so this cannot happen
			return x
		}

		gam, gmi := 1.0, 1.0
		if dif > 0.3 {
			// Far from convergence, apply the norm-balancing factor
			alp := math.Sqrt(mat.Norm(x, math.Inf(1)) * mat.Norm(x, 1))
			bet := math.Sqrt(mat.Norm(&y, math.Inf(1)) * mat.Norm(&y, 1))
			gam = math.Sqrt(bet / alp)
			gmi = 1 / gam
		}

		dif = 0
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				v := 0.5 * (gam*x.At(i, j) + gmi*y.At(j, i))
				dif += math.Abs(v - x.At(i, j))
				z.Set(i, j, v)
			}
		}

		if k > 100 || dif < 3e-6 {
			return z
		}
		x.CloneFrom(z)
	}
}
