package observability

import (
	"os"

	"github.com/shirou/gopsutil/process"
)

type ProcessSampler interface {
	Sample() (rssBytes uint64, cpuPercent float64, err error)
}

// SelfProcess samples memory and CPU of the running relay.
type SelfProcess struct {
	p *process.Process
}

func NewSelfProcess() (*SelfProcess, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &SelfProcess{p: p}, nil
}

func (s *SelfProcess) Sample() (uint64, float64, error) {
	memInfo, err := s.p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := s.p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
