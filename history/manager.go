package history

import (
	"context"
	"fmt"

	"github.com/zllovesuki/launchpad/boot"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var _ boot.Notifier = &Manager{}

// Manager handles the database operations relating to boot Records
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for boot records
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if db == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initilize history.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// Notify records the transition: a new Record when a sequence starts, an update otherwise
func (m *Manager) Notify(ctx context.Context, t boot.Transition) error {
	if t.To == boot.PhaseStartingInstance {
		return m.Create(ctx, &Record{
			SequenceID: t.SequenceID,
			InstanceID: t.InstanceID,
			Outcome:    OutcomeRunning,
			LastPhase:  int(t.To),
			StartedAt:  t.At,
		})
	}
	return m.Update(ctx, t.SequenceID, changes(t))
}

func changes(t boot.Transition) map[string]interface{} {
	updates := map[string]interface{}{
		"last_phase": int(t.To),
	}
	switch t.To {
	case boot.PhaseReady:
		updates["outcome"] = OutcomeReady
		updates["finished_at"] = t.At
	case boot.PhaseFailed:
		updates["outcome"] = OutcomeFailed
		updates["finished_at"] = t.At
		if t.Err != nil {
			updates["error"] = t.Err.Error()
		}
	}
	return updates
}

func (m *Manager) Create(ctx context.Context, rec *Record) error {
	result := m.db.WithContext(ctx).Create(rec)
	if result.Error != nil {
		m.logger.Error("Unable to create boot record in database",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot create boot record")
	}
	return nil
}

func (m *Manager) Update(ctx context.Context, sequenceID string, updates map[string]interface{}) error {
	result := m.db.WithContext(ctx).
		Model(&Record{}).
		Where("sequence_id = ?", sequenceID).
		Updates(updates)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot update boot record")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("Cannot find boot record %s", sequenceID)
	}
	return nil
}

// List returns the latest records of an instance, newest first
func (m *Manager) List(ctx context.Context, instanceID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	results := make([]Record, 0, limit)
	result := m.db.WithContext(ctx).
		Order("started_at desc").
		Limit(limit).
		Find(&results, "instance_id = ?", instanceID)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot list boot records")
	}
	return results, nil
}
