package alert

import (
	"context"
	"io"
	"route-audit-service/internal/domain"
	"sync"

	"go.uber.org/zap"
)

// Bell writes the terminal bell character for each alert. Alerts are dropped
// while the focus check reports the surface as hidden.
type Bell struct {
	mu      sync.Mutex
	out     io.Writer
	log     *zap.Logger
	focused func() bool
}

func NewBell(out io.Writer, log *zap.Logger, focused func() bool) *Bell {
	if log == nil {
		log = zap.NewNop()
	}
	if focused == nil {
		focused = func() bool { return true }
	}
	return &Bell{out: out, log: log, focused: focused}
}

func (b *Bell) Alert(ctx context.Context, id string, c domain.Classification) {
	if !b.focused() {
		b.log.Debug("alert suppressed: surface not focused", zap.String("id", id))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := io.WriteString(b.out, "\a"); err != nil {
		b.log.Warn("alert playback failed", zap.String("id", id), zap.Error(err))
		return
	}
	b.log.Info("alert", zap.String("id", id), zap.String("classification", string(c)))
}

// Nop discards alerts. Remote clients get the alert flag in scan results instead.
type Nop struct{}

func (Nop) Alert(context.Context, string, domain.Classification) {}
