package engine

import (
	"sync"
	"time"
)

// NoticeLevel grades a notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
)

// maxNotices bounds the notice log; older entries are dropped.
const maxNotices = 50

// Notice is an advisory message for the user: a failed background write, a
// reload, a damaged document. Notices never interrupt editing.
type Notice struct {
	Level   NoticeLevel     `json:"level"`
	Code    EngineErrorCode `json:"code,omitempty"`
	Message string          `json:"message"`
	At      time.Time       `json:"at"`

	// ReloadRecommended is set once persistence has failed repeatedly; the
	// UI should offer to reload the document from storage.
	ReloadRecommended bool `json:"reload_recommended,omitempty"`
}

// noticeLog is a bounded, mutex-guarded list of notices. It has its own
// lock because the persistence worker appends while a session method may
// hold the session lock.
type noticeLog struct {
	mu       sync.Mutex
	notices  []Notice
	failures int // consecutive persistence failures
}

func (l *noticeLog) add(n Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addLocked(n)
}

func (l *noticeLog) addLocked(n Notice) {
	l.notices = append(l.notices, n)
	if over := len(l.notices) - maxNotices; over > 0 {
		l.notices = append(l.notices[:0], l.notices[over:]...)
	}
}

// failure records a persistence failure and returns the consecutive count.
func (l *noticeLog) failure(n Notice, reloadAfter int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures++
	if reloadAfter > 0 && l.failures >= reloadAfter {
		n.ReloadRecommended = true
	}
	l.addLocked(n)
	return l.failures
}

func (l *noticeLog) success() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = 0
}

func (l *noticeLog) list() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Notice(nil), l.notices...)
}

func (l *noticeLog) drain() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.notices
	l.notices = nil
	return out
}

func (l *noticeLog) consecutiveFailures() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures
}
