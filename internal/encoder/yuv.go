package encoder

// rgbToYUV420P converts a packed RGB buffer (stride = width*3) into planar
// YUV420P using fixed-point BT.601 coefficients, writing into the given Y,
// U, and V planes with their respective strides. U and V are 2x2
// subsampled: one chroma sample covers a 2x2 luma block.
func rgbToYUV420P(rgb []byte, width, height int, y, u, v []byte, yStride, uStride, vStride int) {
	for row := 0; row < height; row++ {
		rgbRow := row * width * 3
		yRow := row * yStride
		for col := 0; col < width; col++ {
			i := rgbRow + col*3
			r := int(rgb[i+0])
			g := int(rgb[i+1])
			b := int(rgb[i+2])
			y[yRow+col] = byte(clamp255((77*r + 150*g + 29*b) >> 8))
		}
	}

	cw := (width + 1) / 2
	ch := (height + 1) / 2
	for crow := 0; crow < ch; crow++ {
		srcRow := crow * 2
		if srcRow >= height {
			srcRow = height - 1
		}
		uRow := crow * uStride
		vRow := crow * vStride
		for ccol := 0; ccol < cw; ccol++ {
			srcCol := ccol * 2
			if srcCol >= width {
				srcCol = width - 1
			}
			i := srcRow*width*3 + srcCol*3
			r := int(rgb[i+0])
			g := int(rgb[i+1])
			b := int(rgb[i+2])
			uVal := ((-43*r - 85*g + 128*b) >> 8) + 128
			vVal := ((128*r - 107*g - 21*b) >> 8) + 128
			u[uRow+ccol] = byte(clamp255(uVal))
			v[vRow+ccol] = byte(clamp255(vVal))
		}
	}
}

func clamp255(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// planeSizes returns the byte length of each of the Y, U, V planes for a
// tightly packed (no row padding) YUV420P image of the given dimensions.
func planeSizes(width, height int) (ySize, uSize, vSize int) {
	cw := (width + 1) / 2
	ch := (height + 1) / 2
	return width * height, cw * ch, cw * ch
}
