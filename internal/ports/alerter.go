package ports

import (
	"context"
	"route-audit-service/internal/domain"
)

// Fire-and-forget audible alert for scans that need operator attention.
type Alerter interface {
	Alert(ctx context.Context, id string, c domain.Classification)
}
