package copymgr

import (
	"errors"
	"fmt"
)

// DefaultMaxBufferSize is the amount of queued data after which a buffer is
// handed to the copy thread.
const DefaultMaxBufferSize = 10 * 1024 * 1024

var (
	ErrColumnCount   = errors.New("wrong number of columns in row")
	ErrLineFinished  = errors.New("row already finished")
	ErrNoIDColumn    = errors.New("target has no id column")
	ErrNoClassColumn = errors.New("target has no class column")
)

// Manager collects rows and deletes for one producer and passes them on to
// a shared Thread, one buffer per target at a time. A Manager is not safe for
// concurrent use; the Thread may be shared by several managers.
type Manager struct {
	thread  *Thread
	current *copyCmd
	maxSize int
}

func NewManager(thread *Thread, maxSize int) *Manager {
	if maxSize <= 0 {
		maxSize = DefaultMaxBufferSize
	}
	return &Manager{thread: thread, maxSize: maxSize}
}

// prepare makes sure the current buffer belongs to target.
func (m *Manager) prepare(target *TargetDescr) {
	if m.current != nil && !m.current.target.sameAs(target) {
		m.Flush()
	}
	if m.current == nil {
		m.current = &copyCmd{target: target}
	}
}

// NewLine starts a row for target. The columns then have to be added in
// the order of the target's column list. Rows are queued in the order they
// are finished.
func (m *Manager) NewLine(target *TargetDescr) *Line {
	return &Line{mgr: m, target: target}
}

func (m *Manager) finishLine(l *Line) error {
	if l.finished {
		return fmt.Errorf("%w: %s", ErrLineFinished, l.target.FullName())
	}
	if l.columns != l.target.NumColumns {
		return fmt.Errorf("%w: %s has %d columns, got %d", ErrColumnCount, l.target.FullName(), l.target.NumColumns, l.columns)
	}
	l.buf.WriteByte('\n')
	l.finished = true
	m.prepare(l.target)
	m.current.addRow(l.buf.Bytes())
	if m.current.size >= m.maxSize {
		m.Flush()
	}
	return nil
}

// DeleteObject queues the removal of all rows of the object.
func (m *Manager) DeleteObject(target *TargetDescr, typeChar string, id int64) error {
	if target.IDColumn == "" {
		return fmt.Errorf("%w: %s", ErrNoIDColumn, target.FullName())
	}
	m.prepare(target)
	m.current.addDelete(deleteKey{typeChar: typeChar, id: id})
	return nil
}

// DeleteObjectExcept queues the removal of the rows of the object, keeping
// those whose class is one of keep.
func (m *Manager) DeleteObjectExcept(target *TargetDescr, typeChar string, id int64, keep []string) error {
	if target.IDColumn == "" {
		return fmt.Errorf("%w: %s", ErrNoIDColumn, target.FullName())
	}
	if target.ClassColumn == "" {
		return fmt.Errorf("%w: %s", ErrNoClassColumn, target.FullName())
	}
	m.prepare(target)
	m.current.addDelete(deleteKey{typeChar: typeChar, id: id, except: true, keep: append([]string{}, keep...)})
	return nil
}

// Flush hands the current buffer to the copy thread without waiting.
func (m *Manager) Flush() {
	if m.current != nil && !m.current.empty() {
		m.thread.send(m.current)
	}
	m.current = nil
}

// Sync flushes and waits until the store has applied everything queued.
func (m *Manager) Sync() error {
	m.Flush()
	return m.thread.Sync()
}
