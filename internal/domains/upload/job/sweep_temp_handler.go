package job

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"physlib-backend/internal/infrastructure/storage"
	"physlib-backend/pkg/cache"
	"physlib-backend/pkg/logger"
)

// SweepTempObjectsHandler removes staged temp objects left behind by
// sessions that died without closing, such as an API crash mid-edit.
// Each temp object name embeds the book id and the staging timestamp;
// objects older than the idle TTL whose book has no live session in the
// activity index are orphans.
type SweepTempObjectsHandler struct {
	stage   storage.ObjectStage
	cache   cache.Cache
	idleTTL time.Duration
}

func NewSweepTempObjectsHandler(stage storage.ObjectStage, c cache.Cache, idleTTL time.Duration) *SweepTempObjectsHandler {
	return &SweepTempObjectsHandler{stage: stage, cache: c, idleTTL: idleTTL}
}

func (h *SweepTempObjectsHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	liveBooks, err := h.liveBookIDs(ctx)
	if err != nil {
		logger.Warn("sweep: could not read session activity index", map[string]interface{}{
			"error": err.Error(),
		})
		// Without the index we cannot tell live sessions apart, so only
		// remove objects old enough that their session TTL has passed twice.
	}

	entries, err := h.stage.List(ctx, "temp/", "")
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-h.idleTTL)
	graceCutoff := time.Now().Add(-2 * h.idleTTL)

	var stale []string
	for _, entry := range entries {
		key := entry.Key
		bookID, stagedAt, ok := parseTempObjectKey(key)
		if !ok {
			continue
		}
		if liveBooks != nil {
			if _, live := liveBooks[bookID]; live {
				continue
			}
			if stagedAt.Before(cutoff) {
				stale = append(stale, key)
			}
		} else if stagedAt.Before(graceCutoff) {
			stale = append(stale, key)
		}
	}

	if len(stale) == 0 {
		return nil
	}
	if err := h.stage.Remove(ctx, stale); err != nil {
		return err
	}

	logger.Info("swept orphaned temp objects", map[string]interface{}{
		"count": len(stale),
	})
	return nil
}

func (h *SweepTempObjectsHandler) liveBookIDs(ctx context.Context) (map[string]struct{}, error) {
	keys, err := h.cache.Keys(ctx, "upload:session:*")
	if err != nil {
		return nil, err
	}

	live := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		var bookID string
		found, err := h.cache.Get(ctx, key, &bookID)
		if err != nil || !found {
			continue
		}
		live[bookID] = struct{}{}
	}
	return live, nil
}

// parseTempObjectKey extracts the book id and staging time from a key
// shaped like temp/temp_<bookID>_<unixms>_<token>_<name>.<ext>.
func parseTempObjectKey(key string) (bookID string, stagedAt time.Time, ok bool) {
	name := strings.TrimPrefix(key, "temp/")
	parts := strings.SplitN(name, "_", 4)
	if len(parts) < 4 || parts[0] != "temp" {
		return "", time.Time{}, false
	}
	ms, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return parts[1], time.UnixMilli(ms), true
}
