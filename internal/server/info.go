package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Role is this server's position in a replication topology.
type Role int

const (
	RoleMaster Role = iota
	RoleSlave
)

// Info is the read-mostly server-role snapshot shared by every
// connection. Writers are rare (handshake completion, slave count
// changes); spec.md §5 calls for a single-writer/multi-reader
// discipline rather than exposing a lock to callers, so all access goes
// through Snapshot and the mutators below.
type Info struct {
	mu sync.RWMutex

	role            Role
	masterAddr      string
	connectedSlaves int
	runID           string
	replID          string
	replOffset      int64
	startedAt       time.Time
}

// Snapshot is an immutable copy of Info's fields for rendering INFO or
// the PSYNC handshake reply.
type Snapshot struct {
	Role            Role
	MasterAddr      string
	ConnectedSlaves int
	RunID           string
	ReplID          string
	ReplOffset      int64
	Uptime          time.Duration
}

// NewMasterInfo builds an Info for a server with no configured master.
func NewMasterInfo() *Info {
	return &Info{
		role:      RoleMaster,
		runID:     randomHex40(),
		replID:    randomHex40(),
		startedAt: time.Now(),
	}
}

// NewSlaveInfo builds an Info for a server configured to replicate from
// masterAddr.
func NewSlaveInfo(masterAddr string) *Info {
	return &Info{
		role:       RoleSlave,
		masterAddr: masterAddr,
		runID:      randomHex40(),
		replID:     randomHex40(),
		startedAt:  time.Now(),
	}
}

// Snapshot returns a consistent copy of the current info.
func (i *Info) Snapshot() Snapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return Snapshot{
		Role:            i.role,
		MasterAddr:      i.masterAddr,
		ConnectedSlaves: i.connectedSlaves,
		RunID:           i.runID,
		ReplID:          i.replID,
		ReplOffset:      i.replOffset,
		Uptime:          time.Since(i.startedAt),
	}
}

// IncSlaves records a newly completed PSYNC handshake from a replica.
func (i *Info) IncSlaves() {
	i.mu.Lock()
	i.connectedSlaves++
	i.mu.Unlock()
}

// AdoptHandshake records the replid/offset learned from this server's
// own master after completing the outbound handshake.
func (i *Info) AdoptHandshake(replID string, offset int64) {
	i.mu.Lock()
	i.replID = replID
	i.replOffset = offset
	i.mu.Unlock()
}

func randomHex40() string {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is
		// broken; there is nothing sensible to fall back to.
		panic(fmt.Sprintf("server: generating replication id: %v", err))
	}
	return hex.EncodeToString(b)
}

// renderInfo builds the INFO command's reply body. section is taken
// verbatim from the command (already resolved to parts[1] by the parser,
// per spec.md §9(b)). The empty section renders every category; a named
// section renders only that one. Unknown sections are a SimpleError,
// never a connection close (spec.md §7, "Unsupported").
func renderInfo(snap Snapshot, section string) (string, error) {
	switch section {
	case "", "replication", "memory":
	default:
		return "", fmt.Errorf("ERR unknown INFO section '%s'", section)
	}

	var body string
	if section == "" || section == "replication" {
		roleText := "master"
		if snap.Role == RoleSlave {
			roleText = "slave"
		}
		body += fmt.Sprintf(
			"# Replication\r\nrun_id:%s\r\nrole:%s\r\nconnected_slaves:%d\r\nmaster_replid:%s\r\nmaster_repl_offset:%d\r\n",
			snap.RunID, roleText, snap.ConnectedSlaves, snap.ReplID, snap.ReplOffset,
		)
	}
	if section == "" || section == "memory" {
		used, total := memoryStats()
		body += fmt.Sprintf(
			"# Memory\r\nused_memory:%d\r\ntotal_memory:%d\r\n",
			used, total,
		)
	}
	return body, nil
}

// memoryStats reports this process's resident set size and the host's
// total memory, in the style of the teacher's INFO memory category.
func memoryStats() (usedBytes, totalBytes uint64) {
	if vm, err := mem.VirtualMemory(); err == nil {
		totalBytes = vm.Total
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil && info != nil {
			usedBytes = info.RSS
		}
	}
	return usedBytes, totalBytes
}
