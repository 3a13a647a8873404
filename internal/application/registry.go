// Package application hosts the engines behind every external operation:
// the student registry, the XP ledger, the attendance tracker, the
// observation log, and the level service. All of them read and write
// through one injected table store (normally the caching decorator) and
// never see raw rows; the tablestore codecs translate at the boundary.
package application

import (
	"context"
	"sort"

	"github.com/classquest/classquest/internal/domain/shared"
	"github.com/classquest/classquest/internal/domain/student"
	"github.com/classquest/classquest/internal/infrastructure/persistence/tablestore"
	"github.com/classquest/classquest/pkg/logger"
)

// Registry is CRUD over the student roster and the institution table. The
// core never hard-deletes students; external editors may remove rows.
type Registry struct {
	store tablestore.Store
	log   *logger.Logger
}

// NewRegistry creates the roster registry.
func NewRegistry(store tablestore.Store, log *logger.Logger) *Registry {
	return &Registry{store: store, log: log.With(logger.Component("registry"))}
}

// Students returns the full roster in storage order.
func (r *Registry) Students(ctx context.Context) ([]student.Student, error) {
	rows, err := r.store.ReadTable(ctx, tablestore.TableStudents)
	if err != nil {
		return nil, err
	}
	out := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		s, err := tablestore.StudentFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Student returns one student by ID, or ErrStudentNotFound.
func (r *Registry) Student(ctx context.Context, id int) (student.Student, error) {
	students, err := r.Students(ctx)
	if err != nil {
		return student.Student{}, err
	}
	for _, s := range students {
		if s.ID == id {
			return s, nil
		}
	}
	return student.Student{}, shared.ErrStudentNotFound
}

// Save upserts one student by ID with a whole-table write.
func (r *Registry) Save(ctx context.Context, s student.Student) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s = s.Normalize()

	students, err := r.Students(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range students {
		if students[i].ID == s.ID {
			students[i] = s
			replaced = true
			break
		}
	}
	if !replaced {
		students = append(students, s)
	}
	if err := r.writeStudents(ctx, students); err != nil {
		return err
	}
	r.log.Debug("student saved", logger.StudentID(s.ID), logger.Balance(s.XP))
	return nil
}

// ByInstitution returns one institution's students sorted by XP descending,
// the leaderboard order the roster views present.
func (r *Registry) ByInstitution(ctx context.Context, institutionID int) ([]student.Student, error) {
	students, err := r.Students(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]student.Student, 0, len(students))
	for _, s := range students {
		if s.InstitutionID == institutionID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].XP > out[j].XP })
	return out, nil
}

// Institutions returns the institution table.
func (r *Registry) Institutions(ctx context.Context) ([]student.Institution, error) {
	rows, err := r.store.ReadTable(ctx, tablestore.TableInstitutions)
	if err != nil {
		return nil, err
	}
	out := make([]student.Institution, 0, len(rows))
	for _, row := range rows {
		inst, err := tablestore.InstitutionFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// Institution returns one institution by ID, or ErrInstitutionNotFound.
func (r *Registry) Institution(ctx context.Context, id int) (student.Institution, error) {
	insts, err := r.Institutions(ctx)
	if err != nil {
		return student.Institution{}, err
	}
	for _, inst := range insts {
		if inst.ID == id {
			return inst, nil
		}
	}
	return student.Institution{}, shared.ErrInstitutionNotFound
}

// SaveInstitutions replaces the institution table.
func (r *Registry) SaveInstitutions(ctx context.Context, insts []student.Institution) error {
	rows := make([]tablestore.Row, 0, len(insts))
	for _, inst := range insts {
		if err := inst.Validate(); err != nil {
			return err
		}
		rows = append(rows, tablestore.InstitutionToRow(inst))
	}
	return r.store.WriteTable(ctx, tablestore.TableInstitutions, rows)
}

// writeStudents persists the roster wholesale.
func (r *Registry) writeStudents(ctx context.Context, students []student.Student) error {
	rows := make([]tablestore.Row, 0, len(students))
	for _, s := range students {
		rows = append(rows, tablestore.StudentToRow(s))
	}
	return r.store.WriteTable(ctx, tablestore.TableStudents, rows)
}
