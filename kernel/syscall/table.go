package syscall

// Numbers follows the Linux x86_64 convention for every syscall this kernel
// implements, per the spec's syscall ABI. Only SysWrite, SysMmap, SysMunmap
// and SysExit have handlers, registered by this package's init in
// handlers.go; kernel/boot rebinds the mmap, munmap and exit handlers to the
// live subsystems during phase 5. Every other number has no handler and
// Dispatch returns ENOSYS for it. This file reserves the numbers and
// documents the mapping so Register callers have one place to check for
// collisions.
const (
	SysRead     = 0
	SysWrite    = 1
	SysOpen     = 2
	SysClose    = 3
	SysLseek    = 8
	SysMmap     = 9
	SysMunmap   = 11
	SysPipe     = 22
	SysShmget   = 29
	SysShmat    = 30
	SysShmctl   = 31
	SysFork     = 57
	SysExec     = 59
	SysExit     = 60
	SysKill     = 62
	SysShmdt    = 67
	SysMsgget   = 68
	SysMsgsnd   = 69
	SysMsgrcv   = 70
	SysGetdents = 78
	SysMkdir    = 83
	SysRmdir    = 84
	SysUnlink   = 87
)
