// Package pgrp implements process groups and sessions: the pid/pgid/sid
// bookkeeping a job-control shell needs on top of kernel/task/sched. No
// teacher or pack file owns this (the retrieval pack's freestanding kernels
// never reach job control), so the shape is grounded on the same
// map-plus-spinlock discipline kernel/ipc primitives already use, applied to
// membership tables instead of wait queues.
package pgrp

import (
	"github.com/ismobaga/fangaos-sub000/kernel"
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
	"github.com/ismobaga/fangaos-sub000/kernel/task"
)

var (
	errAlreadyLeader  = &kernel.Error{Module: "pgrp", Message: "pid is already a process group leader"}
	errNoSuchGroup    = &kernel.Error{Module: "pgrp", Message: "no such process group"}
	errNoSuchSession  = &kernel.Error{Module: "pgrp", Message: "no such session"}
	errPidNotInGroup  = &kernel.Error{Module: "pgrp", Message: "pid is not a member of any process group"}
)

// Group is a process group: a set of pids sharing a pgid, all within one
// session.
type Group struct {
	PGID    task.ID
	SID     task.ID
	Leader  task.ID
	Members map[task.ID]struct{}

	// Foreground marks this as the session's current foreground group,
	// the one permitted to read from the controlling terminal.
	Foreground bool
}

// Session groups process groups under one controlling terminal.
type Session struct {
	SID    task.ID
	Leader task.ID
	Groups map[task.ID]struct{}

	// ControllingTerminal is set once a terminal attaches; zero value
	// (false, ok) means none.
	ControllingTerminal   uintptr
	HasControllingTerminal bool

	// ForegroundPGID is the pgid currently allowed to read the
	// controlling terminal; valid only when HasForeground is true.
	ForegroundPGID task.ID
	HasForeground  bool
}

// Manager owns every process group and session in the kernel. The zero
// value is ready to use.
type Manager struct {
	lock ksync.Spinlock

	groups   map[task.ID]*Group
	sessions map[task.ID]*Session

	// pidGroup maps a pid to the pgid of the group it currently belongs
	// to; a pid is a member of at most one group at a time (§3).
	pidGroup map[task.ID]task.ID

	nextID task.ID
}

// Init prepares empty group/session tables.
func (m *Manager) Init() {
	m.groups = make(map[task.ID]*Group)
	m.sessions = make(map[task.ID]*Session)
	m.pidGroup = make(map[task.ID]task.ID)
	m.nextID = 1
}

func (m *Manager) allocID() task.ID {
	id := m.nextID
	m.nextID++
	return id
}

// CreateSession creates a new session and a process group led by pid inside
// it, and maps pid into that group. Fails if pid already leads a group.
func (m *Manager) CreateSession(pid task.ID) (sid, pgid task.ID, err *kernel.Error) {
	m.lock.Acquire()
	defer m.lock.Release()

	for _, g := range m.groups {
		if g.Leader == pid {
			return 0, 0, errAlreadyLeader
		}
	}
	if existing, ok := m.pidGroup[pid]; ok {
		if g := m.groups[existing]; g != nil && g.Leader == pid {
			return 0, 0, errAlreadyLeader
		}
	}

	sid = m.allocID()
	pgid = m.allocID()

	sess := &Session{
		SID:    sid,
		Leader: pid,
		Groups: map[task.ID]struct{}{pgid: {}},
	}
	grp := &Group{
		PGID:    pgid,
		SID:     sid,
		Leader:  pid,
		Members: map[task.ID]struct{}{pid: {}},
	}

	m.sessions[sid] = sess
	m.groups[pgid] = grp
	m.pidGroup[pid] = pgid

	return sid, pgid, nil
}

// CreateProcessGroup creates a new group led by leader inside the existing
// session sid.
func (m *Manager) CreateProcessGroup(leader task.ID, sid task.ID) (pgid task.ID, err *kernel.Error) {
	m.lock.Acquire()
	defer m.lock.Release()

	sess, ok := m.sessions[sid]
	if !ok {
		return 0, errNoSuchSession
	}

	pgid = m.allocID()
	grp := &Group{
		PGID:    pgid,
		SID:     sid,
		Leader:  leader,
		Members: map[task.ID]struct{}{leader: {}},
	}
	if prev, ok := m.pidGroup[leader]; ok {
		if g := m.groups[prev]; g != nil {
			delete(g.Members, leader)
		}
	}
	m.groups[pgid] = grp
	sess.Groups[pgid] = struct{}{}
	m.pidGroup[leader] = pgid

	return pgid, nil
}

// AddToProcessGroup moves pid into pgid, leaving whatever group (if any) it
// previously belonged to.
func (m *Manager) AddToProcessGroup(pid task.ID, pgid task.ID) *kernel.Error {
	m.lock.Acquire()
	defer m.lock.Release()

	grp, ok := m.groups[pgid]
	if !ok {
		return errNoSuchGroup
	}

	if prev, ok := m.pidGroup[pid]; ok {
		m.removeFromGroupLocked(pid, prev)
	}

	grp.Members[pid] = struct{}{}
	m.pidGroup[pid] = pgid
	return nil
}

// RemoveFromProcessGroup unlinks pid from its current group. An empty group
// is destroyed; a session that loses its last group is destroyed with it.
func (m *Manager) RemoveFromProcessGroup(pid task.ID) *kernel.Error {
	m.lock.Acquire()
	defer m.lock.Release()

	pgid, ok := m.pidGroup[pid]
	if !ok {
		return errPidNotInGroup
	}
	m.removeFromGroupLocked(pid, pgid)
	return nil
}

func (m *Manager) removeFromGroupLocked(pid task.ID, pgid task.ID) {
	grp, ok := m.groups[pgid]
	if !ok {
		delete(m.pidGroup, pid)
		return
	}

	delete(grp.Members, pid)
	delete(m.pidGroup, pid)

	if len(grp.Members) > 0 {
		return
	}

	// Group is now empty: destroy it, and the owning session too if this
	// was its last group.
	delete(m.groups, pgid)
	sess, ok := m.sessions[grp.SID]
	if !ok {
		return
	}
	delete(sess.Groups, pgid)
	if len(sess.Groups) == 0 {
		delete(m.sessions, grp.SID)
	}
}

// SetForeground clears the foreground flag on every group of pgid's session
// and sets it on pgid alone.
func (m *Manager) SetForeground(pgid task.ID) *kernel.Error {
	m.lock.Acquire()
	defer m.lock.Release()

	grp, ok := m.groups[pgid]
	if !ok {
		return errNoSuchGroup
	}
	sess, ok := m.sessions[grp.SID]
	if !ok {
		return errNoSuchSession
	}

	for otherPGID := range sess.Groups {
		if other, ok := m.groups[otherPGID]; ok {
			other.Foreground = false
		}
	}
	grp.Foreground = true
	sess.ForegroundPGID = pgid
	sess.HasForeground = true
	return nil
}

// GroupOf returns the group pid currently belongs to, if any.
func (m *Manager) GroupOf(pid task.ID) (*Group, bool) {
	m.lock.Acquire()
	defer m.lock.Release()

	pgid, ok := m.pidGroup[pid]
	if !ok {
		return nil, false
	}
	g, ok := m.groups[pgid]
	return g, ok
}

// Session returns the session sid, if it still exists.
func (m *Manager) Session(sid task.ID) (*Session, bool) {
	m.lock.Acquire()
	defer m.lock.Release()

	s, ok := m.sessions[sid]
	return s, ok
}
