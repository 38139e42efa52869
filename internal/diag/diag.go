// Package diag gathers host facts at session start and checks disk space
// before recording: collect a snapshot, log it, and refuse to start if the
// host can't support the session.
package diag

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo is a snapshot of the machine a recording session is running on.
type HostInfo struct {
	Hostname     string
	OSType       string
	Architecture string
	CPUModel     string
	CPUCores     int
	RAMTotalMB   uint64
	RAMFreeMB    uint64
}

// CollectHostInfo gathers the host snapshot, tolerating partial failures: a
// field whose probe fails is left zero rather than aborting the whole
// collection.
func CollectHostInfo() HostInfo {
	info := HostInfo{Architecture: runtime.GOARCH}

	if h, err := host.Info(); err == nil {
		info.Hostname = h.Hostname
		info.OSType = h.OS
	}
	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
		info.CPUCores = int(cpus[0].Cores)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.RAMTotalMB = vm.Total / 1024 / 1024
		info.RAMFreeMB = vm.Available / 1024 / 1024
	}
	return info
}

// minFreeBytes is the free-space floor below which a recording session
// should refuse to start: a single chunk plus its concat output should
// comfortably fit even on a nearly full disk.
const minFreeBytes = 500 * 1024 * 1024

// CheckDiskSpace returns an error if the filesystem backing dir has less
// than minFreeBytes available.
func CheckDiskSpace(dir string) error {
	usage, err := disk.Usage(dir)
	if err != nil {
		return fmt.Errorf("diag: disk usage for %s: %w", dir, err)
	}
	if usage.Free < minFreeBytes {
		return fmt.Errorf("diag: only %d bytes free on %s, need at least %d", usage.Free, dir, minFreeBytes)
	}
	return nil
}

// maxBridgeMemoryFraction is the share of available RAM the bounded bridge
// is allowed to hold in flight. The rest is left for the encoder, the
// capture backend, and everything else running on the host.
const maxBridgeMemoryFraction = 0.1

// SafeBridgeCapacity shrinks requested down so that capacity*frameBytes
// never exceeds maxBridgeMemoryFraction of available memory. If the memory
// probe fails, requested is returned unchanged rather than blocking the
// session on a diagnostics failure.
func SafeBridgeCapacity(requested int, frameBytes int64) int {
	if requested < 1 || frameBytes < 1 {
		return requested
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return requested
	}
	budget := int64(float64(vm.Available) * maxBridgeMemoryFraction)
	maxFrames := int(budget / frameBytes)
	if maxFrames < 1 {
		maxFrames = 1
	}
	if requested > maxFrames {
		return maxFrames
	}
	return requested
}
