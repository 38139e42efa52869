//go:build !linux || !cgo

package display

// listPlatform has no multi-monitor implementation on this platform/build;
// it reports a single display of unknown size rather than failing outright.
func listPlatform() ([]Descriptor, error) {
	return []Descriptor{{
		Index:     0,
		Width:     0,
		Height:    0,
		IsPrimary: true,
	}}, nil
}
