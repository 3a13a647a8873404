package application

import (
	"context"
	"strings"

	"github.com/classquest/classquest/internal/domain/attendance"
	"github.com/classquest/classquest/internal/domain/shared"
	"github.com/classquest/classquest/internal/infrastructure/persistence/tablestore"
	"github.com/classquest/classquest/pkg/logger"
	"github.com/classquest/classquest/pkg/timeutil"
)

// AttendanceTracker keeps per-day attendance marks. Storage is sparse: a
// missing row means unset, and setting a mark back to unset deletes the
// row rather than storing an empty status.
type AttendanceTracker struct {
	store    tablestore.Store
	registry *Registry
	log      *logger.Logger
}

// NewAttendanceTracker creates the attendance tracker.
func NewAttendanceTracker(store tablestore.Store, registry *Registry, log *logger.Logger) *AttendanceTracker {
	return &AttendanceTracker{
		store:    store,
		registry: registry,
		log:      log.With(logger.Component("attendance")),
	}
}

// Toggle advances the student's mark for the date one step through the
// cycle unset, present, tardy, absent, unset. Returns the new status.
func (t *AttendanceTracker) Toggle(ctx context.Context, studentID int, date string) (attendance.Status, error) {
	current, err := t.Status(ctx, studentID, date)
	if err != nil {
		return attendance.Unset, err
	}
	next := current.Next()
	if err := t.Set(ctx, studentID, date, next); err != nil {
		return attendance.Unset, err
	}
	return next, nil
}

// Set stores the student's mark for the date. Setting Unset removes the
// row. Dates must be in YYYY-MM-DD form.
func (t *AttendanceTracker) Set(ctx context.Context, studentID int, date string, status attendance.Status) error {
	if !status.Valid() {
		return shared.ErrInvalidStatus
	}
	if _, err := timeutil.ParseDay(date); err != nil {
		return shared.ErrInvalidDate
	}
	if _, err := t.registry.Student(ctx, studentID); err != nil {
		return err
	}

	records, err := t.allRecords(ctx)
	if err != nil {
		return err
	}
	kept := make([]attendance.Record, 0, len(records)+1)
	for _, rec := range records {
		if rec.StudentID == studentID && rec.Date == date {
			continue
		}
		kept = append(kept, rec)
	}
	if status != attendance.Unset {
		kept = append(kept, attendance.Record{StudentID: studentID, Date: date, Status: status})
	}
	if err := t.writeRecords(ctx, kept); err != nil {
		return err
	}
	t.log.Debug("attendance set",
		logger.StudentID(studentID),
		logger.F("date", date),
		logger.F("status", string(status)),
	)
	return nil
}

// Status returns the student's mark for the date, Unset when no row exists.
func (t *AttendanceTracker) Status(ctx context.Context, studentID int, date string) (attendance.Status, error) {
	if _, err := t.registry.Student(ctx, studentID); err != nil {
		return attendance.Unset, err
	}
	records, err := t.allRecords(ctx)
	if err != nil {
		return attendance.Unset, err
	}
	for _, rec := range records {
		if rec.StudentID == studentID && rec.Date == date {
			return rec.Status, nil
		}
	}
	return attendance.Unset, nil
}

// MonthMap returns the student's marks for one month keyed by day of
// month. Rows with dates that do not parse are skipped.
func (t *AttendanceTracker) MonthMap(ctx context.Context, studentID, year, month int) (map[int]attendance.Status, error) {
	if _, err := t.registry.Student(ctx, studentID); err != nil {
		return nil, err
	}
	records, err := t.allRecords(ctx)
	if err != nil {
		return nil, err
	}
	prefix := timeutil.MonthPrefix(year, month)
	out := make(map[int]attendance.Status)
	for _, rec := range records {
		if rec.StudentID != studentID || !strings.HasPrefix(rec.Date, prefix) {
			continue
		}
		day := timeutil.DayOfMonth(rec.Date)
		if day == 0 {
			continue
		}
		out[day] = rec.Status
	}
	return out, nil
}

// MonthSummary tallies the student's present, tardy and absent counts for
// one month.
func (t *AttendanceTracker) MonthSummary(ctx context.Context, studentID, year, month int) (attendance.MonthSummary, error) {
	marks, err := t.MonthMap(ctx, studentID, year, month)
	if err != nil {
		return attendance.MonthSummary{}, err
	}
	var sum attendance.MonthSummary
	for _, status := range marks {
		sum.Add(status)
	}
	return sum, nil
}

func (t *AttendanceTracker) allRecords(ctx context.Context) ([]attendance.Record, error) {
	rows, err := t.store.ReadTable(ctx, tablestore.TableAttendance)
	if err != nil {
		return nil, err
	}
	out := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := tablestore.AttendanceFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (t *AttendanceTracker) writeRecords(ctx context.Context, records []attendance.Record) error {
	rows := make([]tablestore.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, tablestore.AttendanceToRow(rec))
	}
	return t.store.WriteTable(ctx, tablestore.TableAttendance, rows)
}
