// Package tty provides the thin, deliberately shallow line-editing shell
// collaborator Phase 5 of the boot orchestrator starts. The PS/2 scancode
// decoding, the line editor's key bindings, and the shell's command set are
// all named out of scope by §1 ("the line editor and shell commands"); what
// remains here is just enough wiring — a scancode-to-byte bridge, a bounded
// command history, and a Start() entry point — for the orchestrator to have
// something real to call. Grounded on the teacher's driver/tty.Vt for the
// "terminal owns a byte-oriented write path" shape.
package tty

import (
	"github.com/ismobaga/fangaos-sub000/kernel/hal"
	"github.com/ismobaga/fangaos-sub000/kernel/kfmt"
)

// MaxHistory bounds the command history ring.
const MaxHistory = 64

// History is a bounded FIFO of previously entered command lines.
type History struct {
	lines []string
	next  int
	full  bool
}

// Init prepares an empty history ring.
func (h *History) Init() {
	h.lines = make([]string, MaxHistory)
	h.next = 0
	h.full = false
}

// Push appends a line, overwriting the oldest entry once the ring is full.
func (h *History) Push(line string) {
	h.lines[h.next] = line
	h.next = (h.next + 1) % MaxHistory
	if h.next == 0 {
		h.full = true
	}
}

// All returns every retained line, oldest first.
func (h *History) All() []string {
	if !h.full {
		return append([]string(nil), h.lines[:h.next]...)
	}
	out := make([]string, 0, MaxHistory)
	out = append(out, h.lines[h.next:]...)
	out = append(out, h.lines[:h.next]...)
	return out
}

// LineEditor accumulates bytes from the keyboard bridge into a line buffer,
// completing a line on '\n' and honoring backspace ('\b'). Everything else
// (cursor movement, completion, key bindings) is the out-of-scope line
// editor's concern — this is only the minimum the kernel needs to feed
// History and the console.
type LineEditor struct {
	buf     []byte
	console hal.Console
	history *History
	onLine  func(string)
}

// Init binds the editor to the console it echoes to and the history it
// records completed lines into.
func (e *LineEditor) Init(console hal.Console, history *History, onLine func(string)) {
	e.console = console
	e.history = history
	e.onLine = onLine
	e.buf = e.buf[:0]
}

// Feed processes one decoded input byte.
func (e *LineEditor) Feed(b byte) {
	switch b {
	case '\n', '\r':
		line := string(e.buf)
		e.buf = e.buf[:0]
		if e.console != nil {
			e.console.WriteString("\n")
		}
		if line != "" && e.history != nil {
			e.history.Push(line)
		}
		if e.onLine != nil {
			e.onLine(line)
		}
	case '\b':
		if len(e.buf) > 0 {
			e.buf = e.buf[:len(e.buf)-1]
		}
	default:
		e.buf = append(e.buf, b)
		if e.console != nil {
			e.console.WriteString(string(b))
		}
	}
}

// KeyboardBridge decodes PS/2 scancodes (out of scope, §1) into ASCII and
// forwards each resolved byte to a LineEditor. The scancode table itself is
// left to the external driver; HandleScancode here treats the scancode as
// already-resolved ASCII, the simplest bridge that still satisfies
// hal.KeyboardBridge.
type KeyboardBridge struct {
	editor *LineEditor
}

var _ hal.KeyboardBridge = (*KeyboardBridge)(nil)

// Init binds the bridge to the line editor it feeds.
func (k *KeyboardBridge) Init(editor *LineEditor) {
	k.editor = editor
}

// HandleScancode forwards scancode to the bound line editor.
func (k *KeyboardBridge) HandleScancode(scancode uint8) {
	if k.editor != nil {
		k.editor.Feed(scancode)
	}
}

// Shell is the minimal command loop Phase 5 starts; actual commands are an
// out-of-scope collaborator concern, so Start only prints a prompt banner
// through kfmt and leaves command dispatch to whatever the line editor's
// onLine callback was wired to do.
type Shell struct {
	console hal.Console
}

var _ hal.Shell = (*Shell)(nil)

// Init binds the shell to the console it prints its banner to.
func (s *Shell) Init(console hal.Console) {
	s.console = console
}

// Start prints the shell's ready banner.
func (s *Shell) Start() {
	kfmt.Printf("[shell] ready\n")
	if s.console != nil {
		s.console.WriteString("> ")
	}
}
