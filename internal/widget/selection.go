package widget

import (
	"fmt"
	"sync"
)

// Partition splits a selection by a predicate. Order is preserved in both halves.
type Partition struct {
	Accepted []File
	Rejected []File
}

// Split partitions files with p. A nil predicate accepts everything.
func Split(files []File, p Predicate) Partition {
	var part Partition
	for _, f := range files {
		if p == nil || p.Accept(f) {
			part.Accepted = append(part.Accepted, f)
		} else {
			part.Rejected = append(part.Rejected, f)
		}
	}
	return part
}

// StatusLevel is the severity of a status line.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusWarning
	StatusError
	StatusSuccess
)

// Summarize returns the selection status line for files under p.
func Summarize(files []File, p Predicate) (string, StatusLevel) {
	if p == nil {
		return fmt.Sprintf("%d file(s) selected", len(files)), StatusInfo
	}
	part := Split(files, p)
	if len(part.Accepted) == 0 {
		return noMatchMessage(len(files)), StatusWarning
	}
	return fmt.Sprintf("%d matching file(s) selected — %d other file(s) will be ignored",
		len(part.Accepted), len(part.Rejected)), StatusInfo
}

func noMatchMessage(n int) string {
	return fmt.Sprintf("Warning: no matching file selected — %d file(s) will be ignored", n)
}

// selectionManager tracks the current selection. It is safe for concurrent
// use; the TUI dispatches commands from tea.Cmd goroutines.
type selectionManager struct {
	mu        sync.Mutex
	files     []File
	predicate Predicate
	multiple  bool
}

// replace swaps in a new selection and returns the status line for it.
func (s *selectionManager) replace(files []File) (string, StatusLevel) {
	if !s.multiple && len(files) > 1 {
		files = files[:1]
	}

	s.mu.Lock()
	s.files = append([]File(nil), files...)
	current := s.files
	s.mu.Unlock()

	return Summarize(current, s.predicate)
}

func (s *selectionManager) snapshot() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]File(nil), s.files...)
}

func (s *selectionManager) clear() {
	s.mu.Lock()
	s.files = nil
	s.mu.Unlock()
}
