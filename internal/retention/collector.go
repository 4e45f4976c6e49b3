// Package retention 按保留策略分批清理过期的会话记录与审计记录。
package retention

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wwwzy/RagAgent/internal/storage"
)

// Store 为清理所需的存储能力。
type Store interface {
	DeleteTurnsBeforeLimited(ctx context.Context, before time.Time, limit int) (int64, error)
	DeleteAuditRecordsBeforeLimited(ctx context.Context, before time.Time, limit int) (int64, error)
}

var _ Store = (*storage.Storage)(nil)

// Result 汇总一次清理删除的行数。
type Result struct {
	Turns        int64
	AuditRecords int64
}

type Collector struct {
	cfg   Config
	store Store
}

func NewCollector(store Store, cfg Config) (*Collector, error) {
	if store == nil {
		return nil, errors.New("storage is required")
	}
	return &Collector{store: store, cfg: cfg.withDefaults()}, nil
}

// Run 立即清理一次，之后按 Interval 周期执行，直到 ctx 结束。
func (c *Collector) Run(ctx context.Context) error {
	if c == nil || c.store == nil {
		return errors.New("retention collector not initialized")
	}

	if _, err := c.Prune(ctx, time.Now().UTC()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.Prune(ctx, time.Now().UTC()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
		}
	}
}

// Prune 以 now 为基准执行一轮清理。
func (c *Collector) Prune(ctx context.Context, now time.Time) (Result, error) {
	var res Result
	if c == nil || c.store == nil {
		return res, errors.New("retention collector not initialized")
	}

	var (
		mu    sync.Mutex
		tasks []func(context.Context) error
	)

	if c.cfg.Turns.KeepFor > 0 {
		cut := now.Add(-c.cfg.Turns.KeepFor)
		tasks = append(tasks, func(ctx context.Context) error {
			n, err := c.deleteBefore(ctx, cut, c.store.DeleteTurnsBeforeLimited)
			mu.Lock()
			res.Turns += n
			mu.Unlock()
			return err
		})
	}
	if c.cfg.Audit.KeepFor > 0 {
		cut := now.Add(-c.cfg.Audit.KeepFor)
		tasks = append(tasks, func(ctx context.Context) error {
			n, err := c.deleteBefore(ctx, cut, c.store.DeleteAuditRecordsBeforeLimited)
			mu.Lock()
			res.AuditRecords += n
			mu.Unlock()
			return err
		})
	}
	if len(tasks) == 0 {
		return res, nil
	}

	workers := c.cfg.Workers
	if workers > len(tasks) {
		workers = len(tasks)
	}
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan func(context.Context) error)
	errs := make(chan error, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
					errs <- err
				}
			}
		}()
	}

	for _, t := range tasks {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			close(errs)
			return res, ctx.Err()
		case jobs <- t:
		}
	}
	close(jobs)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			c.cfg.OnError(err)
			return res, err
		}
	}
	return res, nil
}

type deleteFunc func(ctx context.Context, before time.Time, limit int) (int64, error)

func (c *Collector) deleteBefore(ctx context.Context, before time.Time, del deleteFunc) (int64, error) {
	var total int64
	for {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		affected, err := del(ctx, before, c.cfg.BatchRows)
		if err != nil {
			return total, err
		}
		total += affected
		if affected == 0 {
			return total, nil
		}
		if err := c.sleepIdle(ctx); err != nil {
			return total, err
		}
	}
}

func (c *Collector) sleepIdle(ctx context.Context) error {
	if c.cfg.IdleSleep <= 0 {
		return nil
	}
	timer := time.NewTimer(c.cfg.IdleSleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
