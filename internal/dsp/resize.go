package dsp

// ResizeBilinear resamples a 2-D plane to the target shape with bilinear
// interpolation using half-pixel-centered source coordinates.
func ResizeBilinear(src [][]float64, dstH, dstW int) [][]float64 {
	srcH := len(src)
	if srcH == 0 || dstH <= 0 || dstW <= 0 {
		return nil
	}
	srcW := len(src[0])

	scaleY := float64(srcH) / float64(dstH)
	scaleX := float64(srcW) / float64(dstW)

	dst := make([][]float64, dstH)
	for y := range dstH {
		dst[y] = make([]float64, dstW)
		sy := (float64(y)+0.5)*scaleY - 0.5
		y0, fy := splitCoord(sy, srcH)
		for x := range dstW {
			sx := (float64(x)+0.5)*scaleX - 0.5
			x0, fx := splitCoord(sx, srcW)

			y1 := min(y0+1, srcH-1)
			x1 := min(x0+1, srcW-1)

			top := src[y0][x0]*(1-fx) + src[y0][x1]*fx
			bottom := src[y1][x0]*(1-fx) + src[y1][x1]*fx
			dst[y][x] = top*(1-fy) + bottom*fy
		}
	}
	return dst
}

// splitCoord clamps a source coordinate and splits it into the integer base
// index and the interpolation fraction.
func splitCoord(v float64, size int) (int, float64) {
	if v < 0 {
		return 0, 0
	}
	i := int(v)
	if i >= size-1 {
		return size - 1, 0
	}
	return i, v - float64(i)
}
