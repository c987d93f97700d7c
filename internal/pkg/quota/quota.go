// Package quota enforces plan limits atomically with the inserts they guard.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/entitlements"
)

// ErrUnknownOwner is returned when the owner row to lock does not exist.
var ErrUnknownOwner = errors.New("quota: owner not found")

// Result reports whether an insert happened. When OK is false nothing was
// written and Current/Max describe the exhausted limit.
type Result struct {
	OK      bool  `json:"ok"`
	Current int64 `json:"current"`
	Max     int64 `json:"max"`
}

// Usage is the current consumption of a user against their plan.
type Usage struct {
	Plan               entitlements.Plan   `json:"plan"`
	Limits             entitlements.Limits `json:"limits"`
	Forms              int64               `json:"forms"`
	SubmissionsMonthly int64               `json:"submissions_this_month"`
	PeriodStart        time.Time           `json:"period_start"`
}

type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// WithClock returns a copy of the ledger using now as its clock.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	return &Ledger{db: l.db, now: now}
}

// MonthStart returns the first instant of t's month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// InsertFormIfAllowed creates form for userID unless the plan's form limit
// is reached. The count and insert run in one transaction holding the owner
// row lock.
func (l *Ledger) InsertFormIfAllowed(ctx context.Context, userID uint, form *models.Form) (Result, error) {
	form.UserID = userID
	return l.insertIfAllowed(ctx, userID, guard{
		limit: func(lim entitlements.Limits) int64 { return lim.Forms },
		count: func(tx *gorm.DB) (int64, error) {
			var count int64
			if err := tx.Model(&models.Form{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
				return 0, fmt.Errorf("count forms: %w", err)
			}
			return count, nil
		},
		insert: func(tx *gorm.DB) error {
			if err := tx.Create(form).Error; err != nil {
				return fmt.Errorf("insert form: %w", err)
			}
			return nil
		},
	})
}

// InsertSubmissionIfAllowed stores sub unless the owner's monthly submission
// limit is reached. The month is the current UTC calendar month and counts
// submissions across all forms of the owner.
func (l *Ledger) InsertSubmissionIfAllowed(ctx context.Context, userID uint, sub *models.Submission) (Result, error) {
	now := l.now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	since := MonthStart(now)

	return l.insertIfAllowed(ctx, userID, guard{
		limit: func(lim entitlements.Limits) int64 { return lim.SubmissionsMonthly },
		count: func(tx *gorm.DB) (int64, error) { return countSubmissionsSince(tx, userID, since) },
		insert: func(tx *gorm.DB) error {
			if err := tx.Create(sub).Error; err != nil {
				return fmt.Errorf("insert submission: %w", err)
			}
			return nil
		},
	})
}

type guard struct {
	limit  func(entitlements.Limits) int64
	count  func(tx *gorm.DB) (int64, error)
	insert func(tx *gorm.DB) error
}

// insertIfAllowed skips the lock and count when the plan is unlimited. A
// bounded plan is resolved again under the owner lock, so a downgrade that
// races the first read can let at most that one insert through.
func (l *Ledger) insertIfAllowed(ctx context.Context, userID uint, g guard) (Result, error) {
	db := l.db.WithContext(ctx)

	plan, err := planFor(db, userID)
	if err != nil {
		return Result{}, err
	}
	if !entitlements.Bounded(g.limit(entitlements.LimitsFor(plan))) {
		if err := g.insert(db); err != nil {
			return Result{}, err
		}
		return Result{OK: true}, nil
	}

	var res Result
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := lockOwner(tx, userID); err != nil {
			return err
		}
		limits, err := limitsFor(tx, userID)
		if err != nil {
			return err
		}

		if limit := g.limit(limits); entitlements.Bounded(limit) {
			count, err := g.count(tx)
			if err != nil {
				return err
			}
			if count >= limit {
				res = Result{OK: false, Current: count, Max: limit}
				return nil
			}
		}

		if err := g.insert(tx); err != nil {
			return err
		}
		res = Result{OK: true}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Usage reports the user's plan and current consumption.
func (l *Ledger) Usage(ctx context.Context, userID uint) (Usage, error) {
	db := l.db.WithContext(ctx)
	since := MonthStart(l.now())

	plan, err := planFor(db, userID)
	if err != nil {
		return Usage{}, err
	}
	u := Usage{Plan: plan, Limits: entitlements.LimitsFor(plan), PeriodStart: since}

	if err := db.Model(&models.Form{}).Where("user_id = ?", userID).Count(&u.Forms).Error; err != nil {
		return Usage{}, fmt.Errorf("count forms: %w", err)
	}
	if u.SubmissionsMonthly, err = countSubmissionsSince(db, userID, since); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func lockOwner(tx *gorm.DB, userID uint) error {
	var owner models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", userID).
		Take(&owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUnknownOwner
	}
	if err != nil {
		return fmt.Errorf("lock owner: %w", err)
	}
	return nil
}

func planFor(db *gorm.DB, userID uint) (entitlements.Plan, error) {
	var subs []models.BillingSubscription
	if err := db.Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return entitlements.PlanFree, fmt.Errorf("load subscriptions: %w", err)
	}
	return entitlements.ResolvePlan(subs), nil
}

func limitsFor(tx *gorm.DB, userID uint) (entitlements.Limits, error) {
	plan, err := planFor(tx, userID)
	if err != nil {
		return entitlements.Limits{}, err
	}
	return entitlements.LimitsFor(plan), nil
}

func countSubmissionsSince(db *gorm.DB, userID uint, since time.Time) (int64, error) {
	owned := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Form{}).
		Select("id").
		Where("user_id = ?", userID)

	var count int64
	err := db.Model(&models.Submission{}).
		Where("form_id IN (?)", owned).
		Where("created_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return count, nil
}
