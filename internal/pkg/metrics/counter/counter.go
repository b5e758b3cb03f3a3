package counter

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PayButton/paybutton-server/app/models"
	"github.com/PayButton/paybutton-server/internal/pkg/cache"
	"github.com/PayButton/paybutton-server/internal/pkg/database"
)

const (
	scheduledKey = "dispatch:counters:scheduled"
	skippedKey   = "dispatch:counters:skipped"
)

// Recorder buffers dispatch counters in Redis. Increments are cheap hash
// bumps on the hot path; FlushAll later drains them into the database.
type Recorder struct{}

// NewRecorder returns a Redis-backed dispatch counter recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// AddScheduled increments the pending scheduled counter for a channel
func (r *Recorder) AddScheduled(channel models.TriggerChannel, n int) {
	if n <= 0 {
		return
	}
	ctx := context.Background()
	if err := cache.GetClient().HIncrBy(ctx, scheduledKey, string(channel), int64(n)).Err(); err != nil {
		log.Errorf("[Counter] Failed to record scheduled for %s: %v", channel, err)
	}
}

// AddSkipped increments the pending skipped counter for a channel
func (r *Recorder) AddSkipped(channel models.TriggerChannel, n int) {
	if n <= 0 {
		return
	}
	ctx := context.Background()
	if err := cache.GetClient().HIncrBy(ctx, skippedKey, string(channel), int64(n)).Err(); err != nil {
		log.Errorf("[Counter] Failed to record skipped for %s: %v", channel, err)
	}
}

// FlushAll drains both counter hashes into the dispatch_counters table
func FlushAll() error {
	if err := flushHashToColumn(scheduledKey, "scheduled"); err != nil {
		return err
	}
	return flushHashToColumn(skippedKey, "skipped")
}

// StartFlusher flushes counters on the given interval until stop is closed.
func StartFlusher(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			if err := FlushAll(); err != nil {
				log.Errorf("[Counter] Final flush failed: %v", err)
			}
			return
		case <-ticker.C:
			if err := FlushAll(); err != nil {
				log.Errorf("[Counter] Flush failed: %v", err)
			}
		}
	}
}

// flushHashToColumn drains a Redis hash atomically and applies the batched
// increments to dispatch_counters. RENAME to a temp key makes the drain
// atomic without losing in-flight increments.
func flushHashToColumn(redisKey, column string) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	tmpKey := redisKey + ":tmp:" + strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// Key does not exist: nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") || err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}

	increments := parseIncrements(data)
	if len(increments) == 0 {
		rdb.Del(ctx, tmpKey)
		return nil
	}

	if err := applyIncrements(column, increments); err != nil {
		// Merge the drained increments back into the live hash so the next
		// flush retries them. The temp key is kept if even that fails.
		for channel, inc := range increments {
			if rerr := rdb.HIncrBy(ctx, redisKey, channel, inc).Err(); rerr != nil {
				log.Errorf("[Counter] Failed to restore %s increments for %s: %v", redisKey, channel, rerr)
				return err
			}
		}
		rdb.Del(ctx, tmpKey)
		return err
	}

	rdb.Del(ctx, tmpKey)
	return nil
}

// parseIncrements filters a drained counter hash down to the nonzero,
// well-formed increments.
func parseIncrements(data map[string]string) map[string]int64 {
	out := make(map[string]int64, len(data))
	for channel, raw := range data {
		inc, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || inc == 0 {
			continue
		}
		out[channel] = inc
	}
	return out
}

// applyIncrements upserts the per-channel increments into dispatch_counters.
func applyIncrements(column string, increments map[string]int64) error {
	db := database.DB
	for channel, inc := range increments {
		row := models.DispatchCounter{Channel: channel}
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "channel"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				column: gorm.Expr(column+" + ?", inc),
			}),
		}).Create(setColumn(&row, column, inc)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func setColumn(row *models.DispatchCounter, column string, inc int64) *models.DispatchCounter {
	switch column {
	case "scheduled":
		row.Scheduled = inc
	case "skipped":
		row.Skipped = inc
	}
	return row
}
