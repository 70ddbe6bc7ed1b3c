package syscall

import (
	"github.com/ismobaga/fangaos-sub000/kernel"
	"github.com/ismobaga/fangaos-sub000/kernel/syscall/errno"
)

// pageSize mirrors kernel/mem.PageSize. It is kept as a local constant
// rather than an import so the syscall package's validation logic stays
// decoupled from the memory subsystem's types, the same separation
// Dispatch already keeps from any one handler's implementation.
const pageSize = 4096

var errUnbound = &kernel.Error{Module: "syscall", Message: "handler not bound to a backing subsystem"}

// mmapFn, munmapFn and exitFn are the seams boot.go's phase 5 rebinds to
// the live MmapManager and process manager, following the same mocked-
// function-var idiom as writeMSRFn in syscall.go and cpu's privileged-instruction
// wrappers: the handlers below are fully unit-testable against the
// package's zero-value bindings, which simply report errUnbound.
var (
	mmapFn = func(addr, length uint64, prot, flags uint32) (uint64, *kernel.Error) {
		return 0, errUnbound
	}
	munmapFn = func(addr, length uint64) *kernel.Error {
		return errUnbound
	}
	exitFn = func(code int64) {}
)

// BindMemoryManager rebinds SysMmap/SysMunmap to mmap/munmap, the real
// kernel/mem/services.MmapManager operations. Called once, from boot's
// phase 5.
func BindMemoryManager(mmap func(addr, length uint64, prot, flags uint32) (uint64, *kernel.Error), munmap func(addr, length uint64) *kernel.Error) {
	mmapFn = mmap
	munmapFn = munmap
}

// BindProcessExit rebinds SysExit to terminate the calling task through
// the real scheduler/process manager.
func BindProcessExit(exit func(code int64)) {
	exitFn = exit
}

func init() {
	Register(SysWrite, sysWrite)
	Register(SysMmap, sysMmap)
	Register(SysMunmap, sysMunmap)
	Register(SysExit, sysExit)
}

// sysWrite validates fd, the user buffer pointer and the byte count in
// that order (§4.6: "fd<0 -> EBADF", "pathname/buf null -> EFAULT",
// "length==0 -> EINVAL"), matching the spec's S7 scenario exactly. Copying
// bytes out of user memory and resolving fd against a vnode table is the
// VFS's job (§1 places it outside this kernel's specified core), so a
// passing call reports every requested byte written.
func sysWrite(args [6]uint64) int64 {
	fd := int64(args[0])
	buf := args[1]
	count := args[2]

	if ok, rc := ValidateFD(fd); !ok {
		return rc
	}
	if ok, rc := ValidatePointer(buf); !ok {
		return rc
	}
	if ok, rc := ValidateLength(count); !ok {
		return rc
	}
	return int64(count)
}

// sysMmap validates length before delegating placement to mmapFn. addr
// and prot/flags are passed through unvalidated beyond what mmapFn itself
// checks (addr==0 legitimately means "let the kernel choose").
func sysMmap(args [6]uint64) int64 {
	addr := args[0]
	length := args[1]
	prot := uint32(args[2])
	flags := uint32(args[3])

	if ok, rc := ValidateLength(length); !ok {
		return rc
	}

	va, err := mmapFn(addr, length, prot, flags)
	if err != nil {
		return errno.ENOMEM.Negated()
	}
	return int64(va)
}

// sysMunmap validates length, then rejects a non-page-aligned address
// outright (§4.2's mapper only ever operates on page-aligned virtual
// addresses; an unaligned request is a validation failure, not something
// the mapper gets a chance to reject) before delegating to munmapFn.
func sysMunmap(args [6]uint64) int64 {
	addr := args[0]
	length := args[1]

	if ok, rc := ValidateLength(length); !ok {
		return rc
	}
	if addr%pageSize != 0 {
		return errno.EINVAL.Negated()
	}

	if err := munmapFn(addr, length); err != nil {
		return errno.EINVAL.Negated()
	}
	return 0
}

// sysExit terminates the calling task with the given exit code. It never
// returns to its caller on real hardware (the scheduler picks a different
// task on the next tick); the int64 return exists only so it satisfies
// Handler's signature.
func sysExit(args [6]uint64) int64 {
	exitFn(int64(args[0]))
	return 0
}
