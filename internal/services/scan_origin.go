package services

import (
	"route-audit-service/internal/domain"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/zoobzio/clockz"
)

// DefaultScanThreshold is the inter-keystroke gap below which input is
// attributed to a hardware scanner.
const DefaultScanThreshold = 60 * time.Millisecond

// CommitKey ends an entry.
const CommitKey = "Enter"

// KeyEvent is one keystroke of an input session. A zero At means "now" on the
// classifier's clock. FieldValue is the visible content of the input field when
// the key was pressed.
type KeyEvent struct {
	Key        string
	At         time.Time
	FieldValue string
}

// Commit is a finished entry ready to be normalized and reconciled.
type Commit struct {
	Raw        string            `json:"raw"`
	Provenance domain.Provenance `json:"provenance"`
}

// ScanOriginClassifier infers whether an entry was typed or scanned from the
// gaps between keystrokes. It is a heuristic: a fast paste looks like a scan.
// Not safe for concurrent use; KeystrokeSessions serializes access.
type ScanOriginClassifier struct {
	threshold time.Duration
	clock     clockz.Clock

	lastKey    time.Time
	started    bool
	buffer     strings.Builder
	provenance domain.Provenance
}

func NewScanOriginClassifier(threshold time.Duration, clock clockz.Clock) *ScanOriginClassifier {
	if threshold <= 0 {
		threshold = DefaultScanThreshold
	}
	if clock == nil {
		clock = clockz.RealClock
	}
	return &ScanOriginClassifier{
		threshold:  threshold,
		clock:      clock,
		provenance: domain.ProvenanceManual,
	}
}

// Provenance is the tag of the entry in progress.
func (c *ScanOriginClassifier) Provenance() domain.Provenance { return c.provenance }

// Observe feeds one keystroke. On the commit key it returns the finished entry:
// the accumulated buffer for scanner input, or the field value for manual input.
func (c *ScanOriginClassifier) Observe(ev KeyEvent) (Commit, bool) {
	now := ev.At
	if now.IsZero() {
		now = c.clock.Now()
	}

	// The first keystroke of a session always counts as a slow gap.
	if c.started && now.Sub(c.lastKey) < c.threshold {
		c.provenance = domain.ProvenanceScanner
	} else {
		c.provenance = domain.ProvenanceManual
		c.buffer.Reset()
	}
	c.lastKey = now
	c.started = true

	if ev.Key == CommitKey {
		commit := Commit{Raw: ev.FieldValue, Provenance: c.provenance}
		if c.provenance == domain.ProvenanceScanner {
			commit.Raw = c.buffer.String()
		}
		c.buffer.Reset()
		c.provenance = domain.ProvenanceManual
		return commit, true
	}

	if utf8.RuneCountInString(ev.Key) == 1 {
		c.buffer.WriteString(ev.Key)
	}
	return Commit{}, false
}

// DefaultSessionIdle is how long a keystroke session may go without events
// before it is forgotten.
const DefaultSessionIdle = 10 * time.Minute

// KeystrokeSessions keeps one classifier per input session. Sessions idle for
// longer than the idle limit, measured on the clock, are evicted.
type KeystrokeSessions struct {
	mu        sync.Mutex
	threshold time.Duration
	idle      time.Duration
	clock     clockz.Clock
	sessions  map[string]*keystrokeSession
}

type keystrokeSession struct {
	classifier *ScanOriginClassifier
	lastSeen   time.Time
}

// NewKeystrokeSessions builds the session table. idle <= 0 means
// DefaultSessionIdle.
func NewKeystrokeSessions(threshold, idle time.Duration, clock clockz.Clock) *KeystrokeSessions {
	if clock == nil {
		clock = clockz.RealClock
	}
	if idle <= 0 {
		idle = DefaultSessionIdle
	}
	return &KeystrokeSessions{
		threshold: threshold,
		idle:      idle,
		clock:     clock,
		sessions:  map[string]*keystrokeSession{},
	}
}

// Observe feeds events to the session's classifier in order and returns every
// entry they commit.
func (s *KeystrokeSessions) Observe(sessionID string, events []KeyEvent) []Commit {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.evictIdleLocked(now)

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &keystrokeSession{classifier: NewScanOriginClassifier(s.threshold, s.clock)}
		s.sessions[sessionID] = sess
	}
	sess.lastSeen = now

	var commits []Commit
	for _, ev := range events {
		if commit, ok := sess.classifier.Observe(ev); ok {
			commits = append(commits, commit)
		}
	}
	return commits
}

func (s *KeystrokeSessions) evictIdleLocked(now time.Time) {
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.idle {
			delete(s.sessions, id)
		}
	}
}

// Drop forgets a session. It reports whether the session existed.
func (s *KeystrokeSessions) Drop(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return ok
}

func (s *KeystrokeSessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
