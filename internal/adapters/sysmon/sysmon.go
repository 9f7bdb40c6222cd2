// Package sysmon samples process and disk statistics. Everything here is
// best-effort: callers get an explicit "unknown" instead of an error when
// a sample cannot be taken.
package sysmon

import (
	"os"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessSampler reports the bot's own resident set size.
type ProcessSampler struct {
	proc *process.Process
}

// NewProcessSampler builds a sampler for the current process. Returns nil
// when the process handle cannot be opened; a nil sampler simply means
// memory-based recycling is off.
func NewProcessSampler() *ProcessSampler {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil
	}
	return &ProcessSampler{proc: p}
}

// ResidentMB returns the RSS in megabytes. The second return is false
// when sampling is unavailable.
func (s *ProcessSampler) ResidentMB() (int64, bool) {
	if s == nil || s.proc == nil {
		return 0, false
	}
	mi, err := s.proc.MemoryInfo()
	if err != nil || mi == nil {
		return 0, false
	}
	return int64(mi.RSS / (1024 * 1024)), true
}

// FreeBytes reports the free space on the volume holding dir.
func FreeBytes(dir string) (int64, error) {
	usage, err := disk.Usage(dir)
	if err != nil {
		return 0, err
	}
	return int64(usage.Free), nil
}
