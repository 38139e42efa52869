package encoder

import "errors"

// newGPUBackend represents the priority list's GPU tier (NVENC/QuickSync/
// VideoToolbox/AMF equivalents). None of those bindings are vendored in
// this build, so it always reports unavailable and selectBackend falls
// through to the next entry. The tier is kept in the priority list so the
// fallback chain itself, and its logging, are exercised the same way they
// would be on a host where a GPU backend really is absent.
func newGPUBackend() (Backend, error) {
	return nil, errors.New("no such gpu encoder backend compiled into this build")
}
