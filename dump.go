package auraagent

import (
	"fmt"
	"io"
	"runtime"

	"github.com/davecgh/go-spew/spew"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
	MaxDepth:                6,
}

// Fdump writes v to w with the caller's location, for debugging sessions.
func Fdump(w io.Writer, v ...any) {
	_, file, line, _ := runtime.Caller(1)
	args := append([]any{fmt.Sprintf("%s:%d:", file, line)}, v...)
	dumpConfig.Fdump(w, args...)
}
