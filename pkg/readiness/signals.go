package readiness

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Collector derives readiness signals from the estate's records. The
// per-signal queries run in parallel; a failure in any of them fails
// the whole collection.
type Collector struct {
	db *sql.DB
}

// NewCollector creates a signal collector
func NewCollector(db *sql.DB) *Collector {
	return &Collector{db: db}
}

// Collect gathers all signals for an estate, sorted by key
func (c *Collector) Collect(ctx context.Context, estateID string) ([]Signal, error) {
	var mu sync.Mutex
	signals := []Signal{}
	add := func(s Signal) {
		mu.Lock()
		signals = append(signals, s)
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		missing, err := c.documentMissing(ctx, estateID, "will")
		if err != nil {
			return err
		}
		if missing {
			add(Signal{Key: SignalNoWill, Status: StatusMissing, Detail: "No will on file"})
		}
		return nil
	})

	g.Go(func() error {
		missing, err := c.documentMissing(ctx, estateID, "death_certificate")
		if err != nil {
			return err
		}
		if missing {
			add(Signal{Key: SignalNoDeathCertificate, Status: StatusMissing, Detail: "No death certificate on file"})
		}
		return nil
	})

	g.Go(func() error {
		var count int
		err := c.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM rent_payments WHERE estate_id = $1 AND is_paid = FALSE`,
			estateID,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to count unpaid rent: %w", err)
		}
		if count > 0 {
			add(Signal{
				Key:    SignalUnpaidRent,
				Status: StatusAtRisk,
				Count:  count,
				Detail: fmt.Sprintf("%d unpaid rent payments", count),
			})
		}
		return nil
	})

	g.Go(func() error {
		var count int
		err := c.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM tasks WHERE estate_id = $1 AND status != 'done' AND due_date IS NOT NULL AND due_date < $2`,
			estateID, time.Now(),
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to count overdue tasks: %w", err)
		}
		if count > 0 {
			add(Signal{
				Key:    SignalOverdueTasks,
				Status: StatusAtRisk,
				Count:  count,
				Detail: fmt.Sprintf("%d tasks past their due date", count),
			})
		}
		return nil
	})

	g.Go(func() error {
		var count int
		err := c.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM utility_accounts WHERE estate_id = $1 AND status = 'active'`,
			estateID,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to count active utilities: %w", err)
		}
		if count > 0 {
			add(Signal{
				Key:    SignalActiveUtilities,
				Status: StatusAtRisk,
				Count:  count,
				Detail: fmt.Sprintf("%d utility accounts still active", count),
			})
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(signals, func(i, j int) bool { return signals[i].Key < signals[j].Key })
	return signals, nil
}

func (c *Collector) documentMissing(ctx context.Context, estateID, category string) (bool, error) {
	var count int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE estate_id = $1 AND category = $2`,
		estateID, category,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count %s documents: %w", category, err)
	}
	return count == 0, nil
}
