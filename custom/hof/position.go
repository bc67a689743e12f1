package hof

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/romana/rlog"
	"gorm.io/gorm"

	"slopcel/custom/tier"
	"slopcel/model"
)

// Allocator hands out Hall of Fame positions. Allocation runs in a
// serializable transaction so concurrent buyers in the same band never
// receive the same slot; the unique index on hall_of_fame_position is the
// database-level backstop.
type Allocator struct {
	db *gorm.DB
}

func NewAllocator(db *gorm.DB) *Allocator {
	return &Allocator{db: db}
}

// AllocateNext assigns the lowest unused position in the band for amount to
// the given order, if the order does not hold one yet. Returns nil without
// error when the tier has no band or the band is full.
func (a *Allocator) AllocateNext(orderId string, amount int64) (*int, error) {
	t, ok := tier.ByAmount(amount)
	if !ok {
		return nil, fmt.Errorf("no tier for amount %d", amount)
	}
	lo, hi, ok := tier.BandRange(t.Band)
	if !ok {
		return nil, nil
	}

	pos, err := a.allocateInBand(orderId, lo, hi)
	if err != nil && isSerializationFailure(err) {
		rlog.Infof("Position allocation for order %s hit a serialization conflict, retrying", orderId)
		pos, err = a.allocateInBand(orderId, lo, hi)
	}
	return pos, err
}

func (a *Allocator) allocateInBand(orderId string, lo, hi int) (*int, error) {
	var assigned *int
	err := a.db.Transaction(func(tx *gorm.DB) error {
		taken := make([]int, 0)
		errDb := tx.Model(&model.Order{}).
			Where("hall_of_fame_position BETWEEN ? AND ?", lo, hi).
			Order("hall_of_fame_position").
			Pluck("hall_of_fame_position", &taken).Error
		if errDb != nil {
			return errDb
		}

		pos := lo
		for _, p := range taken {
			if p != pos {
				break
			}
			pos++
		}
		if pos > hi {
			// Band full. Not an error: the order completes without a slot.
			return nil
		}

		result := tx.Model(&model.Order{}).
			Where("id = ? AND hall_of_fame_position IS NULL", orderId).
			Update("hall_of_fame_position", pos)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Order already holds a position; never reassign.
			return nil
		}
		assigned = &pos
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	return assigned, nil
}

// IsTierAvailable reports whether the tier's band still has a free slot.
// Advisory only: the answer can go stale the moment it is computed, and the
// allocator remains the authority at reconciliation time.
func (a *Allocator) IsTierAvailable(amount int64) (bool, error) {
	t, ok := tier.ByAmount(amount)
	if !ok {
		return false, fmt.Errorf("no tier for amount %d", amount)
	}
	lo, hi, ok := tier.BandRange(t.Band)
	if !ok {
		return true, nil
	}

	var taken int64
	errDb := a.db.Model(&model.Order{}).
		Where("hall_of_fame_position BETWEEN ? AND ?", lo, hi).
		Count(&taken).Error
	if errDb != nil {
		return false, errDb
	}
	return taken < int64(hi-lo+1), nil
}

func isSerializationFailure(err error) bool {
	pgErr := &pgconn.PgError{}
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}
