// Package capability detects which optional extraction backends are
// installed or reachable. The probe runs once at process start; its
// result is immutable for the process lifetime.
package capability

import (
	"github.com/tbellec/ladingd/constants"
)

// Info carries the availability and optional metadata of one backend.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Set is the immutable capability set computed by the probe. The zero
// value reports every backend unavailable.
type Set struct {
	m map[constants.Backend]Info
}

// NewSet builds a Set from explicit availability info; tests and the
// selector use this directly.
func NewSet(m map[constants.Backend]Info) Set {
	cp := make(map[constants.Backend]Info, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Set{m: cp}
}

// Has reports whether the backend was detected as available.
func (s Set) Has(b constants.Backend) bool {
	return s.m[b].Available
}

// Get returns the probe info for one backend.
func (s Set) Get(b constants.Backend) Info {
	return s.m[b]
}

// All lists every probed backend in a fixed order.
func (s Set) All() map[constants.Backend]Info {
	cp := make(map[constants.Backend]Info, len(s.m))
	for k, v := range s.m {
		cp[k] = v
	}
	return cp
}

// Backends is the fixed enumeration of probed capabilities.
var Backends = []constants.Backend{
	constants.BackendLayout,
	constants.BackendModernOCR,
	constants.BackendLegacyOCR,
	constants.BackendLLM,
	constants.BackendGPU,
}
