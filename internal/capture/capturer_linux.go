//go:build linux && cgo

package capture

/*
#cgo CFLAGS: -I/usr/include
#cgo LDFLAGS: -lX11 -lXext

#include <X11/Xlib.h>
#include <X11/extensions/XShm.h>
#include <sys/ipc.h>
#include <sys/shm.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
    Display* display;
    Window root;
    int screen;
    int width;
    int height;
    int useShm;
    XShmSegmentInfo shmInfo;
    XImage* image;
} captureCtx;

static int ctx_init(captureCtx* c, int displayIndex) {
    c->display = XOpenDisplay(NULL);
    if (c->display == NULL) {
        return 1;
    }
    c->screen = displayIndex;
    if (c->screen >= ScreenCount(c->display)) {
        c->screen = DefaultScreen(c->display);
    }
    c->root = RootWindow(c->display, c->screen);
    c->width = DisplayWidth(c->display, c->screen);
    c->height = DisplayHeight(c->display, c->screen);

    int major, minor;
    Bool pixmaps;
    if (XShmQueryVersion(c->display, &major, &minor, &pixmaps)) {
        c->image = XShmCreateImage(c->display, DefaultVisual(c->display, c->screen),
            DefaultDepth(c->display, c->screen), ZPixmap, NULL, &c->shmInfo, c->width, c->height);
        if (c->image != NULL) {
            c->shmInfo.shmid = shmget(IPC_PRIVATE, c->image->bytes_per_line * c->image->height, IPC_CREAT | 0777);
            if (c->shmInfo.shmid >= 0) {
                c->shmInfo.shmaddr = c->image->data = shmat(c->shmInfo.shmid, 0, 0);
                c->shmInfo.readOnly = False;
                if (XShmAttach(c->display, &c->shmInfo)) {
                    c->useShm = 1;
                    return 0;
                }
            }
            XDestroyImage(c->image);
            c->image = NULL;
        }
    }
    c->useShm = 0;
    return 0;
}

static void ctx_close(captureCtx* c) {
    if (c->useShm && c->image != NULL) {
        XShmDetach(c->display, &c->shmInfo);
        shmdt(c->shmInfo.shmaddr);
        shmctl(c->shmInfo.shmid, IPC_RMID, 0);
        XDestroyImage(c->image);
    }
    if (c->display != NULL) {
        XCloseDisplay(c->display);
    }
    memset(c, 0, sizeof(*c));
}

// grab captures the full root window into out (BGRA, 4 bytes/pixel) and
// reports the byte stride. Returns 0 on success.
static int grab(captureCtx* c, unsigned char** out, int* stride) {
    XImage* img;
    if (c->useShm) {
        if (!XShmGetImage(c->display, c->root, c->image, 0, 0, AllPlanes)) {
            return 2;
        }
        img = c->image;
    } else {
        img = XGetImage(c->display, c->root, 0, 0, c->width, c->height, AllPlanes, ZPixmap);
        if (img == NULL) {
            return 3;
        }
    }

    *stride = img->bytes_per_line;
    size_t size = (size_t)(*stride) * img->height;
    *out = malloc(size);
    if (*out == NULL) {
        if (!c->useShm) XDestroyImage(img);
        return 4;
    }
    memcpy(*out, img->data, size);
    if (!c->useShm) {
        XDestroyImage(img);
    }
    return 0;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

// linuxCapturer grabs the root window of one X11 display via XShm, falling
// back to plain XGetImage when the shared-memory extension isn't available.
type linuxCapturer struct {
	mu  sync.Mutex
	ctx C.captureCtx
}

func newPlatformCapturer(cfg Config) (Capturer, error) {
	c := &linuxCapturer{}
	if rc := C.ctx_init(&c.ctx, C.int(cfg.DisplayIndex)); rc != 0 {
		return nil, fmt.Errorf("failed to open X11 display (is DISPLAY set?)")
	}
	return c, nil
}

func (c *linuxCapturer) Capture() ([]byte, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var data *C.uchar
	var stride C.int
	rc := C.grab(&c.ctx, &data, &stride)
	if rc != 0 {
		return nil, 0, translateGrabError(int(rc))
	}
	defer C.free(unsafe.Pointer(data))

	size := int(stride) * int(c.ctx.height)
	out := C.GoBytes(unsafe.Pointer(data), C.int(size))
	return out, int(stride), nil
}

func (c *linuxCapturer) Bounds() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.ctx.width), int(c.ctx.height)
}

func (c *linuxCapturer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	C.ctx_close(&c.ctx)
	return nil
}

func translateGrabError(code int) error {
	switch code {
	case 2:
		return fmt.Errorf("XShmGetImage failed")
	case 3:
		return fmt.Errorf("XGetImage failed")
	case 4:
		return fmt.Errorf("capture buffer allocation failed")
	default:
		return fmt.Errorf("unknown X11 capture error: %d", code)
	}
}

var _ Capturer = (*linuxCapturer)(nil)
