package application

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/classquest/classquest/internal/domain/observation"
	"github.com/classquest/classquest/internal/domain/shared"
	"github.com/classquest/classquest/internal/infrastructure/persistence/tablestore"
	"github.com/classquest/classquest/pkg/logger"
)

// ObservationLog is the append-only log of free-text notes about students.
// Notes never affect the XP balance.
type ObservationLog struct {
	store    tablestore.Store
	registry *Registry
	log      *logger.Logger
	now      func() string
}

// NewObservationLog creates the observation log. nowStamp supplies note
// timestamps; pass nil for the wall clock.
func NewObservationLog(store tablestore.Store, registry *Registry, log *logger.Logger, nowStamp func() string) *ObservationLog {
	if nowStamp == nil {
		nowStamp = func() string { return observation.Stamp(time.Now()) }
	}
	return &ObservationLog{
		store:    store,
		registry: registry,
		log:      log.With(logger.Component("observations")),
		now:      nowStamp,
	}
}

// Append records one note for the student. Text is trimmed; empty or
// whitespace-only text is rejected. The student's name is snapshotted onto
// the note.
func (o *ObservationLog) Append(ctx context.Context, studentID int, text string) (observation.Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return observation.Note{}, shared.ErrEmptyObservation
	}
	s, err := o.registry.Student(ctx, studentID)
	if err != nil {
		return observation.Note{}, err
	}

	note := observation.Note{
		Timestamp: o.now(),
		StudentID: s.ID,
		Name:      s.Name,
		Text:      text,
	}
	if err := o.store.AppendRow(ctx, tablestore.TableObservations, tablestore.NoteToRow(note)); err != nil {
		return observation.Note{}, err
	}
	o.log.Debug("note appended", logger.StudentID(s.ID))
	return note, nil
}

// Notes returns the student's notes sorted newest first. A limit of zero
// or less means no limit.
func (o *ObservationLog) Notes(ctx context.Context, studentID, limit int) ([]observation.Note, error) {
	if _, err := o.registry.Student(ctx, studentID); err != nil {
		return nil, err
	}
	all, err := o.allNotes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]observation.Note, 0)
	for _, note := range all {
		if note.StudentID == studentID {
			out = append(out, note)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteByTimestamps removes the student's notes whose timestamps appear
// in the given set. Notes sharing a timestamp are all removed. Returns the
// number of notes removed; timestamps matching nothing are ignored.
func (o *ObservationLog) DeleteByTimestamps(ctx context.Context, studentID int, timestamps []string) (int, error) {
	if _, err := o.registry.Student(ctx, studentID); err != nil {
		return 0, err
	}
	if len(timestamps) == 0 {
		return 0, nil
	}
	drop := make(map[string]struct{}, len(timestamps))
	for _, ts := range timestamps {
		drop[ts] = struct{}{}
	}

	all, err := o.allNotes(ctx)
	if err != nil {
		return 0, err
	}
	kept := make([]observation.Note, 0, len(all))
	removed := 0
	for _, note := range all {
		if note.StudentID == studentID {
			if _, ok := drop[note.Timestamp]; ok {
				removed++
				continue
			}
		}
		kept = append(kept, note)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := o.writeNotes(ctx, kept); err != nil {
		return 0, err
	}
	o.log.Info("notes deleted", logger.StudentID(studentID), logger.Count(removed))
	return removed, nil
}

func (o *ObservationLog) allNotes(ctx context.Context) ([]observation.Note, error) {
	rows, err := o.store.ReadTable(ctx, tablestore.TableObservations)
	if err != nil {
		return nil, err
	}
	out := make([]observation.Note, 0, len(rows))
	for _, row := range rows {
		note, err := tablestore.NoteFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, note)
	}
	return out, nil
}

func (o *ObservationLog) writeNotes(ctx context.Context, notes []observation.Note) error {
	rows := make([]tablestore.Row, 0, len(notes))
	for _, note := range notes {
		rows = append(rows, tablestore.NoteToRow(note))
	}
	return o.store.WriteTable(ctx, tablestore.TableObservations, rows)
}
