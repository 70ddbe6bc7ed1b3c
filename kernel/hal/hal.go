// Package hal defines the thin collaborator interfaces the boot
// orchestrator wires up but this kernel's core does not implement: the
// framebuffer console, the keyboard bridge, the shell, and the power
// subsystem. §1 calls these out explicitly as "external collaborators whose
// interfaces are specified where the core touches them" — font rendering,
// PS/2 decoding, line editing and shell commands, and power/battery policy
// are all out of scope, but the core still needs a named seam to start them
// through. Grounded on the teacher's kernel/hal/hal.go, which plays exactly
// this role for its own terminal.
package hal

// Console is the framebuffer console surface the core touches: a 32-bpp
// linear buffer driven only through these five operations (§6). The actual
// glyph rendering and buffer format are a driver's concern.
type Console interface {
	Clear()
	SetPosition(x, y uint16)
	WriteString(s string)
	RedrawLine(y uint16)
	DrawCursor()
}

// KeyboardBridge decodes PS/2 scancodes (a driver's concern, §1) and
// forwards resolved key events to whatever currently owns console input.
type KeyboardBridge interface {
	// HandleScancode is called from the keyboard IRQ handler with the raw
	// byte read from port 0x60.
	HandleScancode(scancode uint8)
}

// Shell is the line-editing, history-backed command interpreter presented
// on the console; its commands and line editor are out of scope (§1), but
// Phase 5 of the boot orchestrator still starts one.
type Shell interface {
	Start()
}

// PowerController models battery/hibernate/shutdown policy, entirely out of
// scope per §1's Non-goals but still named as a Phase 5 collaborator.
type PowerController interface {
	Shutdown()
	Reboot()
}

// TimerBridge lets the boot orchestrator wire the PIT/APIC timer IRQ to the
// scheduler's tick counter without this package depending on
// kernel/task/sched directly.
type TimerBridge interface {
	OnTick(handler func())
}

var (
	// ActiveConsole is the console the kernel currently writes to; nil
	// until something assigns one. The boot orchestrator does not set it.
	ActiveConsole Console

	// ActiveKeyboard, ActiveShell and ActivePower are the remaining Phase
	// 4/5 collaborators; each is nil until a concrete implementation is
	// assigned. Boot sets ActiveKeyboard (Phase 4) and ActiveShell
	// (Phase 5); it does not set ActivePower.
	ActiveKeyboard KeyboardBridge
	ActiveShell    Shell
	ActivePower    PowerController
)
