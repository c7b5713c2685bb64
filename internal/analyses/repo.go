package analyses

import (
	"context"
	"time"
)

// Recorder persists completed records. The pipeline never reads them back.
type Recorder interface {
	Insert(ctx context.Context, rec Record) (string, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
