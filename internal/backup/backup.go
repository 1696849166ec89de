package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Snapshotter produces a consistent copy of the local store.
type Snapshotter interface {
	Snapshot(w io.Writer) (int64, error)
}

type Runner struct {
	source  Snapshotter
	objects ObjectStore
	prefix  string
	now     func() time.Time
	logger  zerolog.Logger
}

func NewRunner(source Snapshotter, objects ObjectStore, prefix string, logger zerolog.Logger) *Runner {
	return &Runner{
		source:  source,
		objects: objects,
		prefix:  prefix,
		now:     time.Now,
		logger:  logger,
	}
}

// Run uploads one snapshot and returns its object key.
func (r *Runner) Run(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	size, err := r.source.Snapshot(&buf)
	if err != nil {
		return "", err
	}

	key := storagePath(r.prefix, r.now())
	if err := r.objects.Upload(ctx, key, &buf, size); err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}

	r.logger.Info().
		Str("key", key).
		Int64("size", size).
		Msg("Snapshot uploaded")

	return key, nil
}

// Prune keeps the newest keep snapshots under the prefix and deletes the
// rest. Keys sort by time, so lexical order is age order.
func (r *Runner) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		return 0, nil
	}

	keys, err := r.objects.List(ctx, r.prefix)
	if err != nil {
		return 0, err
	}
	if len(keys) <= keep {
		return 0, nil
	}

	sort.Strings(keys)
	stale := keys[:len(keys)-keep]
	for _, key := range stale {
		if err := r.objects.Delete(ctx, key); err != nil {
			return 0, err
		}
		r.logger.Debug().Str("key", key).Msg("Old snapshot deleted")
	}

	return len(stale), nil
}

// RunAndPrune uploads a snapshot and then trims old ones. A failed prune is
// logged only; the new snapshot is already safe.
func (r *Runner) RunAndPrune(ctx context.Context, keep int) (string, error) {
	key, err := r.Run(ctx)
	if err != nil {
		return "", err
	}

	deleted, err := r.Prune(ctx, keep)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to prune old snapshots")
	} else if deleted > 0 {
		r.logger.Info().Int("deleted", deleted).Msg("Old snapshots pruned")
	}

	return key, nil
}
