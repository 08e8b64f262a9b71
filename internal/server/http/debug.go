package http

import (
	"net/http"
	"net/http/pprof"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lfsdesk/internal/sync"
)

// RuntimeInfo is the body of GET /debug/runtime.
type RuntimeInfo struct {
	GoVersion         string     `json:"go_version"`
	GoOS              string     `json:"go_os"`
	GoArch            string     `json:"go_arch"`
	NumCPU            int        `json:"num_cpu"`
	NumGoroutine      int        `json:"num_goroutine"`
	UptimeSeconds     int64      `json:"uptime_seconds"`
	DeadlockDetection bool       `json:"deadlock_detection"`
	Clients           int        `json:"clients"`
	Memory            MemoryInfo `json:"memory"`
}

// MemoryInfo summarizes runtime.MemStats in megabytes.
type MemoryInfo struct {
	AllocMB        float64 `json:"alloc_mb"`
	SysMB          float64 `json:"sys_mb"`
	HeapAllocMB    float64 `json:"heap_alloc_mb"`
	HeapInuseMB    float64 `json:"heap_inuse_mb"`
	HeapObjects    uint64  `json:"heap_objects"`
	NumGC          uint32  `json:"num_gc"`
	GCPauseTotalMS float64 `json:"gc_pause_total_ms"`
}

// registerDebug mounts /debug/runtime and the pprof handlers.
func (s *Server) registerDebug(router *mux.Router) {
	debug := router.PathPrefix("/debug").Subrouter()
	debug.HandleFunc("/runtime", s.handleRuntimeInfo).Methods(http.MethodGet)

	debug.HandleFunc("/pprof/cmdline", pprof.Cmdline)
	debug.HandleFunc("/pprof/profile", pprof.Profile)
	debug.HandleFunc("/pprof/symbol", pprof.Symbol)
	debug.HandleFunc("/pprof/trace", pprof.Trace)
	// Named profiles (heap, goroutine, mutex, ...) are served by Index.
	debug.PathPrefix("/pprof/").HandlerFunc(pprof.Index)

	log.Info().Msg("debug endpoints registered at /debug/")
}

func (s *Server) handleRuntimeInfo(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	const mb = 1024 * 1024
	respondJSON(w, http.StatusOK, RuntimeInfo{
		GoVersion:         runtime.Version(),
		GoOS:              runtime.GOOS,
		GoArch:            runtime.GOARCH,
		NumCPU:            runtime.NumCPU(),
		NumGoroutine:      runtime.NumGoroutine(),
		UptimeSeconds:     int64(time.Since(s.started).Seconds()),
		DeadlockDetection: sync.DetectionEnabled(),
		Clients:           s.rpcServer.ClientCount(),
		Memory: MemoryInfo{
			AllocMB:        float64(m.Alloc) / mb,
			SysMB:          float64(m.Sys) / mb,
			HeapAllocMB:    float64(m.HeapAlloc) / mb,
			HeapInuseMB:    float64(m.HeapInuse) / mb,
			HeapObjects:    m.HeapObjects,
			NumGC:          m.NumGC,
			GCPauseTotalMS: float64(m.PauseTotalNs) / 1e6,
		},
	})
}
