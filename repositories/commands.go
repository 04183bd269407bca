package repositories

import (
	"context"

	"github.com/plantCo2/water-device/db"
	"github.com/plantCo2/water-device/entities"

	"gorm.io/gorm/clause"
)

type commandRepository struct {
	db db.Database
}

func NewCommandRepository(database db.Database) CommandRepository {
	return &commandRepository{db: database}
}

func (r *commandRepository) Enqueue(ctx context.Context, cmd *entities.Command) error {
	return r.db.GetDB().WithContext(ctx).Create(cmd).Error
}

func (r *commandRepository) DrainPending(ctx context.Context) (*entities.Command, int, error) {
	var delivered *entities.Command
	var drained int

	err := r.db.Transaction(ctx, func(tx db.Database) error {
		q := tx.GetDB().WithContext(ctx).
			Where("executed = ?", false).
			Order("timestamp DESC").Order("id DESC")
		if tx.Dialect() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var pending []entities.Command
		if err := q.Find(&pending).Error; err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		// Only the snapshot is marked; later submits wait for the next poll
		ids := make([]uint, 0, len(pending))
		for _, c := range pending {
			ids = append(ids, c.ID)
		}
		res := tx.GetDB().WithContext(ctx).Model(&entities.Command{}).
			Where("id IN ? AND executed = ?", ids, false).
			Update("executed", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return ErrConflict
		}

		newest := pending[0]
		newest.Executed = true
		delivered = &newest
		drained = len(ids)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return delivered, drained, nil
}

func (r *commandRepository) Pending(ctx context.Context) ([]entities.Command, error) {
	cmds := []entities.Command{}
	err := r.db.GetDB().WithContext(ctx).
		Where("executed = ?", false).
		Order("timestamp DESC").Order("id DESC").
		Find(&cmds).Error
	return cmds, err
}

func (r *commandRepository) Recent(ctx context.Context, limit int) ([]entities.Command, error) {
	if limit <= 0 {
		limit = 50
	}
	cmds := []entities.Command{}
	err := r.db.GetDB().WithContext(ctx).
		Order("timestamp DESC").Order("id DESC").
		Limit(limit).
		Find(&cmds).Error
	return cmds, err
}
