// Configuration (spec §6). Three integer knobs (the two collection
// thresholds and the arena cap) are loadable from the environment,
// with compile-time defaults; malformed values silently fall back. No config-framework dependency appears anywhere
// in the retrieval pack for a shape this small — moby-moby itself
// reaches for plain os.Getenv + strconv here rather than a framework —
// so this one corner of the module is deliberately stdlib-only; see
// DESIGN.md.
package qcgc

import (
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	envMajorCollection = "QCGC_MAJOR_COLLECTION"
	envIncMark         = "QCGC_INCMARK"
	envMaxArenas       = "QCGC_MAX_ARENAS"

	// defaultMajorThreshold is QCGC_MAJOR_COLLECTION's compile-time
	// default: bytes allocated between full collections.
	defaultMajorThreshold uintptr = 8 << 20 // 8 MiB
	// defaultIncMarkThreshold is QCGC_INCMARK's compile-time default:
	// bytes allocated between incremental mark slices.
	defaultIncMarkThreshold uintptr = 256 << 10 // 256 KiB

	// largeAllocExp is log2 of the largest size the small-object
	// path will serve; anything bigger goes to the huge allocator.
	largeAllocExp = 14 // 16 KiB

	// shadowStackSize is the default root-stack capacity in slots.
	shadowStackSize = 4096

	// incMarkMin is the minimum number of entries an incremental
	// slice will drain, even if half the backlog is smaller.
	incMarkMin = 32

	// defaultMaxArenas is QCGC_MAX_ARENAS's compile-time default: the
	// combined live-plus-free arena count acquireArena will not map
	// past. At arenaSize (1 MiB) each, this bounds the arena system to
	// 4 GiB.
	defaultMaxArenas = 4096
)

// Config holds the collector's tunable knobs.
type Config struct {
	// MajorThreshold is QCGC_MAJOR_COLLECTION: bytes allocated
	// between full collections.
	MajorThreshold uintptr
	// IncMarkThreshold is QCGC_INCMARK: bytes allocated between
	// incremental mark slices.
	IncMarkThreshold uintptr
	// LargeAllocExp is log2 of the largest non-huge allocation size.
	LargeAllocExp uint
	// ShadowStackSize is the root stack's capacity, in slots.
	ShadowStackSize int
	// IncMarkMin is the minimum amount of work an incremental slice
	// performs.
	IncMarkMin int
	// LogAllocations enables the optional ALLOCATE_START/DONE event
	// pair (spec §6), off by default since it is per-allocation
	// overhead.
	LogAllocations bool
	// MaxArenas is QCGC_MAX_ARENAS: the most arenas (live plus pooled)
	// acquireArena will ever map. Allocate returns ErrOutOfMemory once
	// the cap is reached and no pooled arena or fit can serve the
	// request.
	MaxArenas int
	// Registerer, if non-nil, receives the collector's Prometheus
	// metrics (SPEC_FULL.md's domain-stack wiring). Metrics are
	// skipped entirely when nil.
	Registerer prometheus.Registerer
}

// DefaultConfig returns the compile-time defaults before any
// environment overrides are applied.
func DefaultConfig() Config {
	return Config{
		MajorThreshold:   defaultMajorThreshold,
		IncMarkThreshold: defaultIncMarkThreshold,
		LargeAllocExp:    largeAllocExp,
		ShadowStackSize:  shadowStackSize,
		IncMarkMin:       incMarkMin,
		MaxArenas:        defaultMaxArenas,
	}
}

// LoadConfig starts from DefaultConfig and overrides MajorThreshold,
// IncMarkThreshold, and MaxArenas from the environment. A malformed or
// missing value silently keeps the default, per spec §6/§7.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if v, ok := parseEnvUint(envMajorCollection); ok {
		cfg.MajorThreshold = v
	}
	if v, ok := parseEnvUint(envIncMark); ok {
		cfg.IncMarkThreshold = v
	}
	if v, ok := parseEnvUint(envMaxArenas); ok {
		cfg.MaxArenas = int(v)
	}
	return cfg
}

func parseEnvUint(name string) (uintptr, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uintptr(v), true
}
