//go:build linux && cgo

package display

/*
#cgo LDFLAGS: -lX11 -lXinerama

#include <X11/Xlib.h>
#include <X11/extensions/Xinerama.h>
#include <stdlib.h>

typedef struct {
    int x, y, width, height;
} rectT;

// listScreens fills out with up to max rects via Xinerama, or with a single
// rect from the default screen if Xinerama isn't active. Returns the count,
// or -1 if the display couldn't be opened.
static int listScreens(rectT* out, int max) {
    Display* d = XOpenDisplay(NULL);
    if (d == NULL) {
        return -1;
    }

    int n = 0;
    if (XineramaIsActive(d)) {
        XineramaScreenInfo* screens = XineramaQueryScreens(d, &n);
        if (screens != NULL) {
            if (n > max) n = max;
            for (int i = 0; i < n; i++) {
                out[i].x = screens[i].x_org;
                out[i].y = screens[i].y_org;
                out[i].width = screens[i].width;
                out[i].height = screens[i].height;
            }
            XFree(screens);
            XCloseDisplay(d);
            return n;
        }
    }

    int screen = DefaultScreen(d);
    out[0].x = 0;
    out[0].y = 0;
    out[0].width = DisplayWidth(d, screen);
    out[0].height = DisplayHeight(d, screen);
    XCloseDisplay(d);
    return 1;
}
*/
import "C"

const maxDisplays = 16

func listPlatform() ([]Descriptor, error) {
	var rects [maxDisplays]C.rectT
	n := C.listScreens(&rects[0], C.int(maxDisplays))
	if n < 0 {
		return nil, &ErrCaptureFailed{Reason: "failed to open X11 display (is DISPLAY set?)"}
	}

	descs := make([]Descriptor, 0, int(n))
	for i := 0; i < int(n); i++ {
		r := rects[i]
		descs = append(descs, Descriptor{
			Index:     i,
			Width:     int(r.width),
			Height:    int(r.height),
			OriginX:   int(r.x),
			OriginY:   int(r.y),
			IsPrimary: i == 0,
		})
	}
	return descs, nil
}
