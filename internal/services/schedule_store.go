package services

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tripplan_app_echo/internal/models"
)

// scheduleStore holds the bucket primitives. Every method runs on a transaction
// handle; the shifts are only safe while the bucket lock is held.
type scheduleStore struct {
	tx *gorm.DB
}

type bucketStats struct {
	Total         int
	DistinctCount int
	MinIndex      int
	MaxIndex      int
}

// dense reports whether the indexes are exactly 0..Total-1
func (b bucketStats) dense() bool {
	if b.Total == 0 {
		return true
	}
	return b.DistinctCount == b.Total && b.MinIndex == 0 && b.MaxIndex == b.Total-1
}

// lockBuckets serializes writers of the given (plan, day) buckets until the
// transaction ends. Days are locked in ascending order so two cross-day moves
// in opposite directions cannot deadlock. SQLite already serializes writers.
func (s scheduleStore) lockBuckets(planID uint, days ...int) error {
	if !isPostgres(s.tx) {
		return nil
	}
	sorted := append([]int(nil), days...)
	sort.Ints(sorted)
	for i, day := range sorted {
		if i > 0 && day == sorted[i-1] {
			continue
		}
		if err := s.tx.Exec("SELECT pg_advisory_xact_lock(?)", bucketLockKey(planID, day)).Error; err != nil {
			return fmt.Errorf("lock bucket %d/%d: %w", planID, day, err)
		}
	}
	return nil
}

// bucketLockKey folds the full 64-bit plan id and the day into the single
// bigint advisory lock key space
func bucketLockKey(planID uint, day int) int64 {
	var buf [17]byte
	buf[0] = 's'
	binary.BigEndian.PutUint64(buf[1:9], uint64(planID))
	binary.BigEndian.PutUint64(buf[9:], uint64(day))
	h := fnv.New64a()
	h.Write(buf[:])
	return int64(h.Sum64())
}

// find loads a schedule of planID without locking it
func (s scheduleStore) find(planID, scheduleID uint) (*models.PlanSchedule, error) {
	return s.load(s.tx, planID, scheduleID)
}

// lock loads a schedule of planID with a row lock
func (s scheduleStore) lock(planID, scheduleID uint) (*models.PlanSchedule, error) {
	q := s.tx
	if isPostgres(q) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return s.load(q, planID, scheduleID)
}

func (s scheduleStore) load(q *gorm.DB, planID, scheduleID uint) (*models.PlanSchedule, error) {
	var schedule models.PlanSchedule
	if err := q.Where("id = ?", scheduleID).First(&schedule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	if schedule.PlanID != planID {
		return nil, ErrNotFound
	}
	return &schedule, nil
}

// lockWithBuckets locks the schedule's current bucket plus extraDays, then the
// row itself. A row that changed day while we waited means our view is stale.
func (s scheduleStore) lockWithBuckets(planID, scheduleID uint, extraDays ...int) (*models.PlanSchedule, error) {
	seen, err := s.find(planID, scheduleID)
	if err != nil {
		return nil, err
	}
	if err := s.lockBuckets(planID, append([]int{seen.DayNumber}, extraDays...)...); err != nil {
		return nil, err
	}
	locked, err := s.lock(planID, scheduleID)
	if err != nil {
		return nil, err
	}
	if locked.DayNumber != seen.DayNumber {
		return nil, ErrConflict
	}
	return locked, nil
}

func (s scheduleStore) stats(planID uint, day int) (bucketStats, error) {
	var stats bucketStats
	err := s.tx.Model(&models.PlanSchedule{}).
		Select("COUNT(*) AS total, COUNT(DISTINCT order_index) AS distinct_count, "+
			"COALESCE(MIN(order_index), 0) AS min_index, COALESCE(MAX(order_index), -1) AS max_index").
		Where("plan_id = ? AND day_number = ?", planID, day).
		Scan(&stats).Error
	if err != nil {
		return bucketStats{}, fmt.Errorf("bucket stats: %w", err)
	}
	return stats, nil
}

// verify aborts the transaction with ErrConflict if the bucket is not dense
func (s scheduleStore) verify(planID uint, day int) error {
	stats, err := s.stats(planID, day)
	if err != nil {
		return err
	}
	if !stats.dense() {
		return fmt.Errorf("%w: bucket %d/%d has %d items, %d distinct indexes in [%d,%d]",
			ErrConflict, planID, day, stats.Total, stats.DistinctCount, stats.MinIndex, stats.MaxIndex)
	}
	return nil
}

// shift adds delta to every index in [from, to]. A negative to means no upper bound.
func (s scheduleStore) shift(planID uint, day, from, to, delta int) error {
	q := s.tx.Model(&models.PlanSchedule{}).
		Where("plan_id = ? AND day_number = ? AND order_index >= ?", planID, day, from)
	if to >= 0 {
		q = q.Where("order_index <= ?", to)
	}
	if err := q.Update("order_index", gorm.Expr("order_index + ?", delta)).Error; err != nil {
		return fmt.Errorf("shift bucket %d/%d: %w", planID, day, err)
	}
	return nil
}

// pull closes the gap left at index vacated
func (s scheduleStore) pull(planID uint, day, vacated int) error {
	return s.shift(planID, day, vacated+1, -1, -1)
}

// push opens a gap at index at
func (s scheduleStore) push(planID uint, day, at int) error {
	return s.shift(planID, day, at, -1, 1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
