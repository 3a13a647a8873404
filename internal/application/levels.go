package application

import (
	"context"

	"github.com/classquest/classquest/internal/domain/milestone"
	"github.com/classquest/classquest/internal/infrastructure/persistence/tablestore"
	"github.com/classquest/classquest/pkg/logger"
)

// LevelService derives rank state from balances and the configured
// milestone table.
type LevelService struct {
	store    tablestore.Store
	registry *Registry
	log      *logger.Logger
}

// NewLevelService creates the level service.
func NewLevelService(store tablestore.Store, registry *Registry, log *logger.Logger) *LevelService {
	return &LevelService{
		store:    store,
		registry: registry,
		log:      log.With(logger.Component("levels")),
	}
}

// Table returns the milestone table sorted by ascending threshold. A fresh
// backend materializes the default 6-tier ladder on first read.
func (l *LevelService) Table(ctx context.Context) (milestone.Table, error) {
	rows, err := l.store.ReadTable(ctx, tablestore.TableMilestones)
	if err != nil {
		return nil, err
	}
	table := make(milestone.Table, 0, len(rows))
	for _, row := range rows {
		m, err := tablestore.MilestoneFromRow(row)
		if err != nil {
			return nil, err
		}
		table = append(table, m)
	}
	if len(table) == 0 {
		table = milestone.DefaultTable()
	}
	table.Sort()
	return table, nil
}

// SaveTable validates and replaces the milestone table. The table is
// persisted in sorted order.
func (l *LevelService) SaveTable(ctx context.Context, table milestone.Table) error {
	if err := table.Validate(); err != nil {
		return err
	}
	sorted := make(milestone.Table, len(table))
	copy(sorted, table)
	sorted.Sort()

	rows := make([]tablestore.Row, 0, len(sorted))
	for _, m := range sorted {
		rows = append(rows, tablestore.MilestoneToRow(m))
	}
	if err := l.store.WriteTable(ctx, tablestore.TableMilestones, rows); err != nil {
		return err
	}
	l.log.Info("milestone table replaced", logger.Count(len(sorted)))
	return nil
}

// LevelFor computes the student's rank state and 1-based level number.
func (l *LevelService) LevelFor(ctx context.Context, studentID int) (milestone.Level, int, error) {
	s, err := l.registry.Student(ctx, studentID)
	if err != nil {
		return milestone.Level{}, 0, err
	}
	table, err := l.Table(ctx)
	if err != nil {
		return milestone.Level{}, 0, err
	}
	lvl := milestone.ComputeLevel(s.XP, table)
	return lvl, 1 + table.Index(lvl.Current.Label), nil
}
