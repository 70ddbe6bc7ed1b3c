package tty

import "testing"

type fakeConsole struct {
	written []string
}

func (c *fakeConsole) Clear()                  {}
func (c *fakeConsole) SetPosition(x, y uint16) {}
func (c *fakeConsole) WriteString(s string)    { c.written = append(c.written, s) }
func (c *fakeConsole) RedrawLine(y uint16)     {}
func (c *fakeConsole) DrawCursor()             {}

func TestHistoryPushAndAllInOrder(t *testing.T) {
	var h History
	h.Init()

	h.Push("ls")
	h.Push("pwd")

	all := h.All()
	if len(all) != 2 || all[0] != "ls" || all[1] != "pwd" {
		t.Fatalf("unexpected history: %v", all)
	}
}

func TestHistoryWrapsPastCapacity(t *testing.T) {
	var h History
	h.Init()

	for i := 0; i < MaxHistory+3; i++ {
		h.Push(string(rune('a' + i%26)))
	}

	all := h.All()
	if len(all) != MaxHistory {
		t.Fatalf("expected history capped at %d, got %d", MaxHistory, len(all))
	}
}

func TestLineEditorCompletesLineOnNewline(t *testing.T) {
	cons := &fakeConsole{}
	var h History
	h.Init()

	var captured string
	var e LineEditor
	e.Init(cons, &h, func(line string) { captured = line })

	for _, b := range []byte("echo hi\n") {
		e.Feed(b)
	}

	if captured != "echo hi" {
		t.Fatalf("expected captured line %q, got %q", "echo hi", captured)
	}
	if all := h.All(); len(all) != 1 || all[0] != "echo hi" {
		t.Fatalf("expected history to record the line, got %v", all)
	}
}

func TestLineEditorBackspaceRemovesLastByte(t *testing.T) {
	cons := &fakeConsole{}
	var h History
	h.Init()

	var captured string
	var e LineEditor
	e.Init(cons, &h, func(line string) { captured = line })

	for _, b := range []byte("helpp\b\n") {
		e.Feed(b)
	}

	if captured != "help" {
		t.Fatalf("expected backspace to correct to %q, got %q", "help", captured)
	}
}

func TestKeyboardBridgeForwardsToEditor(t *testing.T) {
	cons := &fakeConsole{}
	var h History
	h.Init()

	var captured string
	var e LineEditor
	e.Init(cons, &h, func(line string) { captured = line })

	var kb KeyboardBridge
	kb.Init(&e)

	for _, b := range []byte("hi\n") {
		kb.HandleScancode(b)
	}

	if captured != "hi" {
		t.Fatalf("expected %q, got %q", "hi", captured)
	}
}

func TestShellStartPrintsPromptToConsole(t *testing.T) {
	cons := &fakeConsole{}
	var s Shell
	s.Init(cons)

	s.Start()

	if len(cons.written) == 0 || cons.written[0] != "> " {
		t.Fatalf("expected a prompt written to the console, got %v", cons.written)
	}
}
