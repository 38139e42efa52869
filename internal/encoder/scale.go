package encoder

// scaleAndPad fits src (srcW x srcH packed RGB) inside a dstW x dstH canvas
// using nearest-neighbor scaling that preserves aspect ratio, centers the
// result, and pads the remainder with black. Returns a freshly allocated
// dstW*dstH*3 buffer.
func scaleAndPad(src []byte, srcW, srcH, dstW, dstH int) []byte {
	out := make([]byte, dstW*dstH*3) // zeroed, i.e. black

	scale := float64(dstW) / float64(srcW)
	if hs := float64(dstH) / float64(srcH); hs < scale {
		scale = hs
	}

	scaledW := int(float64(srcW) * scale)
	scaledH := int(float64(srcH) * scale)
	if scaledW < 1 {
		scaledW = 1
	}
	if scaledH < 1 {
		scaledH = 1
	}

	offsetX := (dstW - scaledW) / 2
	offsetY := (dstH - scaledH) / 2

	for dy := 0; dy < scaledH; dy++ {
		sy := dy * srcH / scaledH
		if sy >= srcH {
			sy = srcH - 1
		}
		dstRow := (dy + offsetY) * dstW * 3
		srcRow := sy * srcW * 3
		for dx := 0; dx < scaledW; dx++ {
			sx := dx * srcW / scaledW
			if sx >= srcW {
				sx = srcW - 1
			}
			si := srcRow + sx*3
			di := dstRow + (dx+offsetX)*3
			out[di+0] = src[si+0]
			out[di+1] = src[si+1]
			out[di+2] = src[si+2]
		}
	}
	return out
}
