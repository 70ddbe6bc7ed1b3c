// Package kmain is the single Go entry point the rt0 trampoline jumps into
// once it has set up a minimal stack and handed off from assembly: the same
// role the teacher's kernel/kmain package fills. Unlike the teacher's
// multiboot-based Kmain, which receives one raw info pointer and parses tags
// out of it lazily, this kernel's rt0 stage is responsible for resolving the
// Limine request/response handshake and the linker-provided stack-top/PML4
// values itself; Kmain's job starts once those are already boxed into a
// *limine.BootInfo and a boot.Params, and is simply to hand them to the boot
// orchestrator and never return.
package kmain

import (
	"github.com/ismobaga/fangaos-sub000/kernel"
	"github.com/ismobaga/fangaos-sub000/kernel/boot"
	"github.com/ismobaga/fangaos-sub000/kernel/boot/limine"
	"github.com/ismobaga/fangaos-sub000/kernel/kfmt"
)

var errKmainReturned = &kernel.Error{Module: "kmain", Message: "boot.Run returned"}

// Kmain assembles every subsystem via boot.Run and is not expected to
// return. If it does — boot.Run is not supposed to give control back — the
// rt0 trampoline would otherwise fall off the end of the kernel image, so
// this panics through kfmt instead of looping silently.
//
// kfmt.Panic, not a bare panic, is used for the same reason the teacher's
// more complete kmain variant uses kernel.Panic instead of a bare panic
// call: it keeps the compiler from treating the line as dead code and
// eliminating it, which would turn an impossible-but-real condition into a
// silent fall-through on real hardware.
//
//go:noinline
func Kmain(info *limine.BootInfo, p boot.Params) {
	boot.Run(info, p)

	kfmt.Panic(errKmainReturned)
}
