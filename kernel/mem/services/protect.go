package services

import (
	"github.com/ismobaga/fangaos-sub000/kernel/mem"
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
)

// protectedRegion names an access policy over a virtual address range, such
// as a stack's read/write-only data or a kernel text segment's
// read/exec-only code.
type protectedRegion struct {
	start mem.VirtAddr
	size  mem.Size
	prot  Prot
	name  string
}

func (r protectedRegion) contains(va mem.VirtAddr) bool {
	return va >= r.start && va < r.start+mem.VirtAddr(r.size)
}

// ProtectManager evaluates access checks against guard pages and declared
// protected regions. Its default policy is deny: an address that falls
// outside every declared region, or lands on a guard page, is rejected.
type ProtectManager struct {
	lock ksync.Spinlock

	guards  map[mem.VirtAddr]struct{}
	regions []protectedRegion
}

// Init prepares the manager for use.
func (p *ProtectManager) Init() {
	p.guards = make(map[mem.VirtAddr]struct{})
}

// AddGuardPage marks va as a guard page: any access to it is denied
// regardless of what protected region it might otherwise fall within. Used
// for stack overflow detection.
func (p *ProtectManager) AddGuardPage(va mem.VirtAddr) {
	p.lock.Acquire()
	defer p.lock.Release()

	p.guards[va] = struct{}{}
}

// RemoveGuardPage clears a previously added guard page.
func (p *ProtectManager) RemoveGuardPage(va mem.VirtAddr) {
	p.lock.Acquire()
	defer p.lock.Release()

	delete(p.guards, va)
}

// AddRegion declares start..start+size as accessible under prot.
func (p *ProtectManager) AddRegion(start mem.VirtAddr, size mem.Size, prot Prot, name string) {
	p.lock.Acquire()
	defer p.lock.Release()

	p.regions = append(p.regions, protectedRegion{start: start, size: size, prot: prot, name: name})
}

// CheckAccess reports whether an access to va is permitted. write and exec
// request write and execute permission respectively; neither set means a
// plain read. The default, when va matches no declared region, is deny.
func (p *ProtectManager) CheckAccess(va mem.VirtAddr, write, exec bool) bool {
	p.lock.Acquire()
	defer p.lock.Release()

	if _, isGuard := p.guards[va]; isGuard {
		return false
	}

	for _, r := range p.regions {
		if !r.contains(va) {
			continue
		}
		if write && r.prot&ProtWrite == 0 {
			return false
		}
		if exec && r.prot&ProtExec == 0 {
			return false
		}
		if !write && !exec && r.prot&ProtRead == 0 {
			return false
		}
		return true
	}

	return false
}
