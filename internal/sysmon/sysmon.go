// Package sysmon samples host and process resource usage for the
// dashboard.
package sysmon

import (
	"os"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Stats holds a single snapshot of resource usage.
type Stats struct {
	CPUPercent float64 // host-wide, 0.0 .. 100.0
	MemPercent float64 // host-wide, 0.0 .. 100.0
	Load1      float64 // one-minute load average; 0 where unsupported
	ProcessRSS uint64  // resident set of this process in bytes
	Threads    int32   // OS threads of this process
}

// Sampler reads Stats for the current process. The zero value is not
// usable; call NewSampler.
type Sampler struct {
	once sync.Once
	proc *process.Process
}

// NewSampler returns a sampler bound to the calling process.
func NewSampler() *Sampler {
	return &Sampler{}
}

func (s *Sampler) self() *process.Process {
	s.once.Do(func() {
		if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
			s.proc = p
		}
	})
	return s.proc
}

// Sample collects one snapshot. CPU uses interval=0, so the first call
// reports the delta since boot and later calls the delta since the
// previous one. Fields that cannot be read stay zero.
func (s *Sampler) Sample() Stats {
	var st Stats
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		st.CPUPercent = pcts[0]
	}
	if vmem, err := mem.VirtualMemory(); err == nil && vmem != nil {
		st.MemPercent = vmem.UsedPercent
	}
	if avg, err := load.Avg(); err == nil && avg != nil {
		st.Load1 = avg.Load1
	}
	if p := s.self(); p != nil {
		if mi, err := p.MemoryInfo(); err == nil && mi != nil {
			st.ProcessRSS = mi.RSS
		}
		if n, err := p.NumThreads(); err == nil {
			st.Threads = n
		}
	}
	return st
}

var defaultSampler = NewSampler()

// Sample collects a snapshot with the package-level sampler.
func Sample() Stats {
	return defaultSampler.Sample()
}
