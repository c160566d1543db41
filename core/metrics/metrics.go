// Package metrics snapshots host and ledger health for the status command.
package metrics

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Source is the ledger side of a metrics snapshot.
type Source interface {
	ChainLength() uint64
	MempoolSize() int
	PeerCount() int
	TierLevel() int
	ConsensusLabel() string
	LastBlockTime() time.Time
	StartedAt() time.Time
}

// NodeMetrics holds granular health metrics for the node.
type NodeMetrics struct {
	UptimeSeconds     int64   `json:"uptime_seconds"`
	ChainLength       uint64  `json:"chain_length"`
	MempoolSize       int     `json:"mempool_size"`
	PeerCount         int     `json:"peer_count"`
	Tier              int     `json:"complexity_tier"`
	ConsensusLabel    string  `json:"consensus_label"`
	LastBlockTime     string  `json:"last_block_time"`
	CPULoadPercent    float64 `json:"cpu_load_percent"`
	MemoryMB          float64 `json:"memory_mb"`
	HostMemoryPercent float64 `json:"host_memory_percent"`
	DiskFreeMB        float64 `json:"disk_free_mb"`
}

// Collect returns current metrics. Host probes that fail report zero.
func Collect(src Source, dataDir string) NodeMetrics {
	m := NodeMetrics{
		UptimeSeconds:  int64(time.Since(src.StartedAt()).Seconds()),
		ChainLength:    src.ChainLength(),
		MempoolSize:    src.MempoolSize(),
		PeerCount:      src.PeerCount(),
		Tier:           src.TierLevel(),
		ConsensusLabel: src.ConsensusLabel(),
	}
	if t := src.LastBlockTime(); !t.IsZero() {
		m.LastBlockTime = t.UTC().Format(time.RFC3339)
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.MemoryMB = float64(ms.Alloc) / (1024 * 1024)

	if vm, err := mem.VirtualMemory(); err == nil {
		m.HostMemoryPercent = vm.UsedPercent
	}
	if usage, err := disk.Usage(dataDir); err == nil {
		m.DiskFreeMB = float64(usage.Free) / (1024 * 1024)
	}
	if cpuPercents, err := cpu.Percent(0, false); err == nil && len(cpuPercents) > 0 {
		m.CPULoadPercent = cpuPercents[0]
	}
	return m
}
