package wasm

import (
	"sync"

	"github.com/blackbox-log/blackbox-log-go/infrastructure/textlog"
)

var (
	mu        sync.Mutex
	installed *Boundary
)

// Install makes b the target of the module's exports, replacing any
// previously installed boundary.
func Install(b *Boundary) {
	mu.Lock()
	defer mu.Unlock()
	installed = b
}

// Installed returns the boundary exports are routed to. Without an explicit
// Install, a boundary over the text log engine is created on first use.
func Installed() *Boundary {
	mu.Lock()
	defer mu.Unlock()
	if installed == nil {
		installed = New(textlog.New())
	}
	return installed
}
