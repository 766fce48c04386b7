package procinfo

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Details is the descriptive information shown next to a resolved terminal.
type Details struct {
	PID       int32
	ParentPID int32
	Cmdline   string
	Username  string
	Started   time.Time
}

var newProcess = process.NewProcess

// Describe collects best-effort details about pid. Fields the caller is not
// permitted to read are left empty.
func Describe(pid uint32) (Details, error) {
	p, err := newProcess(int32(pid))
	if err != nil {
		return Details{}, fmt.Errorf("inspect process %d: %w", pid, err)
	}

	d := Details{PID: p.Pid}
	if ppid, err := p.Ppid(); err == nil {
		d.ParentPID = ppid
	}
	if cmdline, err := p.Cmdline(); err == nil {
		d.Cmdline = cmdline
	}
	if user, err := p.Username(); err == nil {
		d.Username = user
	}
	if ms, err := p.CreateTime(); err == nil && ms > 0 {
		d.Started = time.UnixMilli(ms)
	}
	return d, nil
}
