package encoder

import "testing"

func TestScaleAndPadPreservesAspectAndCenters(t *testing.T) {
	// 4x2 solid red source scaled into a 8x8 canvas: fits at 8x4, centered
	// with 2px black bars top and bottom.
	srcW, srcH := 4, 2
	src := make([]byte, srcW*srcH*3)
	for i := 0; i < len(src); i += 3 {
		src[i+0] = 255
	}
	out := scaleAndPad(src, srcW, srcH, 8, 8)

	if len(out) != 8*8*3 {
		t.Fatalf("output len = %d, want %d", len(out), 8*8*3)
	}

	topLeft := out[0]
	if topLeft != 0 {
		t.Fatalf("top padding pixel = %d, want black (0)", topLeft)
	}

	midRowOffset := 4 * 8 * 3
	if out[midRowOffset] != 255 {
		t.Fatalf("scaled content pixel r = %d, want 255", out[midRowOffset])
	}
}

func TestScaleAndPadExactFitNoPadding(t *testing.T) {
	src := make([]byte, 4*4*3)
	for i := range src {
		src[i] = 42
	}
	out := scaleAndPad(src, 4, 4, 4, 4)
	for i, v := range out {
		if v != 42 {
			t.Fatalf("out[%d] = %d, want 42 (exact fit, no scaling/padding)", i, v)
		}
	}
}
