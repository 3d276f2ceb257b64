// File: runtime/settings.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RuntimeSettings is the configuration surface consumed (not owned) by
// Build. Loading it from a file or flags is out of scope; the teacher's
// server/types.go Config/DefaultConfig idiom is followed: a plain struct
// with a constructor, no third-party config library.

package runtime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PortConfig describes one port to be built by Runtime.Build.
type PortConfig struct {
	Name          string
	Device        string
	Cores         []CoreId
	RxDescriptors int
	TxDescriptors int
}

// RuntimeSettings configures a Runtime's Build call.
type RuntimeSettings struct {
	MasterCore  CoreId
	WorkerCores []CoreId
	Ports       []PortConfig

	MempoolCapacity  int
	MempoolCacheSize int

	// Duration is the timeout-mode wait. Zero or absent (the field's zero
	// value) selects signal mode: zero is reserved for signal mode, not
	// "return immediately".
	Duration time.Duration
}

// DefaultRuntimeSettings returns a RuntimeSettings with conservative mempool
// sizing and signal mode selected, mirroring the teacher's DefaultConfig.
func DefaultRuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		MempoolCapacity:  1024,
		MempoolCacheSize: 32,
	}
}

// AllCores returns the union of the master core, every worker core, and
// every port's assigned cores.
func (s RuntimeSettings) AllCores() []CoreId {
	seen := make(map[CoreId]struct{})
	var out []CoreId
	add := func(c CoreId) {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	add(s.MasterCore)
	for _, c := range s.WorkerCores {
		add(c)
	}
	for _, p := range s.Ports {
		for _, c := range p.Cores {
			add(c)
		}
	}
	return out
}

// ToEalArgs renders this configuration's core list into the EAL init argv
// understood by dpdk.EAL.Init: "-l <comma-separated lcores>" followed by
// "--master-lcore <id>".
func (s RuntimeSettings) ToEalArgs() []string {
	cores := s.AllCores()
	toks := make([]string, len(cores))
	for i, c := range cores {
		toks[i] = strconv.FormatUint(uint64(c.Raw()), 10)
	}
	return []string{
		"-l", strings.Join(toks, ","),
		"--master-lcore", strconv.FormatUint(uint64(s.MasterCore.Raw()), 10),
	}
}

// Validate performs structural checks Build relies on before touching the
// EAL: non-empty worker list, master not duplicated as a worker, and unique
// port names. Deeper checks (core availability, descriptor ranges) happen
// during Build against the live EAL.
func (s RuntimeSettings) Validate() error {
	if len(s.WorkerCores) == 0 {
		return fmt.Errorf("runtime: at least one worker core is required")
	}
	for _, w := range s.WorkerCores {
		if w == s.MasterCore {
			return fmt.Errorf("runtime: master core %v must not also be a worker", w)
		}
	}
	seen := make(map[string]struct{}, len(s.Ports))
	for _, p := range s.Ports {
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicatePort, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}
