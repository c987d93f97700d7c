package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const formViewsKey = "form:counters:views"

// Counters buffers hot counters in Redis and periodically applies them to
// the database in one batched statement.
type Counters struct {
	rdb *redis.Client
	db  *gorm.DB
}

func New(rdb *redis.Client, db *gorm.DB) *Counters {
	return &Counters{rdb: rdb, db: db}
}

// AddFormView increments the pending view counter for a form in Redis
func (c *Counters) AddFormView(ctx context.Context, formID string) error {
	return c.rdb.HIncrBy(ctx, formViewsKey, formID, 1).Err()
}

// FlushAll applies all pending counters to the database.
func (c *Counters) FlushAll(ctx context.Context) error {
	return c.flushHashToTable(ctx, formViewsKey, "forms", "view_count")
}

// flushHashToTable drains a Redis hash atomically and applies batched increments to table.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func (c *Counters) flushHashToTable(ctx context.Context, redisKey, table, column string) error {
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := c.rdb.Rename(ctx, redisKey, tmpKey).Err(); err != nil {
		// Nothing buffered since the last flush
		if err == redis.Nil || strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer c.rdb.Del(ctx, tmpKey)

	data, err := c.rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}

	type pair struct {
		id  string
		inc int64
	}
	pairs := make([]pair, 0, len(data))
	for id, v := range data {
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 || id == "" {
			continue
		}
		pairs = append(pairs, pair{id: id, inc: inc})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	// UPDATE forms SET view_count = view_count + CASE id WHEN ? THEN ? ... END WHERE id IN (...)
	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE ")
	builder.WriteString(table)
	builder.WriteString(" SET ")
	builder.WriteString(column)
	builder.WriteString(" = ")
	builder.WriteString(column)
	builder.WriteString(" + CASE id")
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	builder.WriteString(" ELSE 0 END WHERE id IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.id)
	}
	builder.WriteString(")")

	return c.db.WithContext(ctx).Exec(builder.String(), args...).Error
}
