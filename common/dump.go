package common

import (
	"log"

	"github.com/davecgh/go-spew/spew"
)

var spewConfig *spew.ConfigState

func init() {
	spewConfig = spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true
	spewConfig.DisablePointerAddresses = true
	spewConfig.SortKeys = true
}

// SDump returns a deterministic, human readable dump of the given values.
// Used for debug output of poses and controller state, and for test diagnostics.
//
// Parameters:
//   - a: the values to dump
//
// Returns:
//   - string: the formatted dump
func SDump(a ...any) string {
	return spewConfig.Sdump(a...)
}

// LogDump writes a dump of the given values to the standard logger.
//
// Parameters:
//   - a: the values to dump
func LogDump(a ...any) {
	log.Println(spewConfig.Sdump(a...))
}
