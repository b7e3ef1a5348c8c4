package orchestrator

import (
	"sync"

	"github.com/noctum/noctum/config"
)

// configHandle is the single-writer/many-reader view of process
// configuration: the daemon's own reload path is the sole writer, while
// every worker goroutine only ever reads a snapshot.
type configHandle struct {
	mu  sync.RWMutex
	cfg *config.ProcessConfig
}

func newConfigHandle(cfg *config.ProcessConfig) *configHandle {
	return &configHandle{cfg: cfg}
}

func (h *configHandle) Get() *config.ProcessConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

func (h *configHandle) Set(cfg *config.ProcessConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg = cfg
}
