package tablestore

import (
	"strconv"
	"strings"

	"github.com/classquest/classquest/internal/domain/attendance"
	"github.com/classquest/classquest/internal/domain/ledger"
	"github.com/classquest/classquest/internal/domain/milestone"
	"github.com/classquest/classquest/internal/domain/observation"
	"github.com/classquest/classquest/internal/domain/shared"
	"github.com/classquest/classquest/internal/domain/student"
)

// Codecs between raw rows and typed records. Numeric coercion rules follow
// the stored data's conventions: malformed xp / delta values default to 0
// and a malformed institution reference defaults to the seed institution.
// Those defaults are intentional and kept; a malformed identity column is
// not recoverable and surfaces as a validation error instead.

// ─────────────────────────────────────────────────────────────────────────
// numeric helpers
// ─────────────────────────────────────────────────────────────────────────

// intOr parses an integer field, defaulting on blank or malformed input.
func intOr(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

// requireID parses an identity column strictly.
func requireID(table, field, s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, shared.WrapError("tablestore", "Decode", shared.ErrValidation, table+": bad "+field, err)
	}
	return v, nil
}

// ─────────────────────────────────────────────────────────────────────────
// students
// ─────────────────────────────────────────────────────────────────────────

// StudentFromRow decodes one roster row.
func StudentFromRow(r Row) (student.Student, error) {
	id, err := requireID(TableStudents, "id", r["id"])
	if err != nil {
		return student.Student{}, err
	}
	s := student.Student{
		ID:            id,
		Name:          r["name"],
		Group:         r["grupo"],
		XP:            intOr(r["xp"], 0),
		InstitutionID: intOr(r["colegio_id"], student.DefaultInstitutionID),
		Phone:         r["phone"],
		Teacher:       r["teacher"],
		PendingDelta:  intOr(r["xp_delta"], 0),
		PendingReason: r["xp_reason"],
		Avatar:        r["avatar"],
		Trinket:       r["trinket"],
		TrinketDesc:   r["trinket_desc"],
	}
	return s.Normalize(), nil
}

// StudentToRow encodes one roster row.
func StudentToRow(s student.Student) Row {
	return Row{
		"id":           strconv.Itoa(s.ID),
		"name":         s.Name,
		"grupo":        s.Group,
		"xp":           strconv.Itoa(s.XP),
		"colegio_id":   strconv.Itoa(s.InstitutionID),
		"phone":        s.Phone,
		"teacher":      s.Teacher,
		"xp_delta":     strconv.Itoa(s.PendingDelta),
		"xp_reason":    s.PendingReason,
		"avatar":       s.Avatar,
		"trinket":      s.Trinket,
		"trinket_desc": s.TrinketDesc,
	}
}

// ─────────────────────────────────────────────────────────────────────────
// ledger entries
// ─────────────────────────────────────────────────────────────────────────

// EntryFromRow decodes one ledger row.
func EntryFromRow(r Row) (ledger.Entry, error) {
	id, err := requireID(TableLogs, "id", r["id"])
	if err != nil {
		return ledger.Entry{}, err
	}
	return ledger.Entry{
		Timestamp: r["timestamp"],
		StudentID: id,
		Name:      r["name"],
		Delta:     intOr(r["delta_xp"], 0),
		Reason:    r["reason"],
	}, nil
}

// EntryToRow encodes one ledger row.
func EntryToRow(e ledger.Entry) Row {
	return Row{
		"timestamp": e.Timestamp,
		"id":        strconv.Itoa(e.StudentID),
		"name":      e.Name,
		"delta_xp":  strconv.Itoa(e.Delta),
		"reason":    e.Reason,
	}
}

// ─────────────────────────────────────────────────────────────────────────
// observations
// ─────────────────────────────────────────────────────────────────────────

// NoteFromRow decodes one observation row.
func NoteFromRow(r Row) (observation.Note, error) {
	id, err := requireID(TableObservations, "id", r["id"])
	if err != nil {
		return observation.Note{}, err
	}
	return observation.Note{
		Timestamp: r["timestamp"],
		StudentID: id,
		Name:      r["name"],
		Text:      r["observacion"],
	}, nil
}

// NoteToRow encodes one observation row.
func NoteToRow(n observation.Note) Row {
	return Row{
		"timestamp":   n.Timestamp,
		"id":          strconv.Itoa(n.StudentID),
		"name":        n.Name,
		"observacion": n.Text,
	}
}

// ─────────────────────────────────────────────────────────────────────────
// attendance
// ─────────────────────────────────────────────────────────────────────────

// AttendanceFromRow decodes one attendance row. An unknown status decodes
// as unset; month scans skip those rather than failing the whole read.
func AttendanceFromRow(r Row) (attendance.Record, error) {
	id, err := requireID(TableAttendance, "id", r["id"])
	if err != nil {
		return attendance.Record{}, err
	}
	st := attendance.Status(strings.TrimSpace(r["status"]))
	if !st.Valid() {
		st = attendance.Unset
	}
	return attendance.Record{StudentID: id, Date: r["date"], Status: st}, nil
}

// AttendanceToRow encodes one attendance row.
func AttendanceToRow(rec attendance.Record) Row {
	return Row{
		"id":     strconv.Itoa(rec.StudentID),
		"date":   rec.Date,
		"status": string(rec.Status),
	}
}

// ─────────────────────────────────────────────────────────────────────────
// institutions
// ─────────────────────────────────────────────────────────────────────────

// InstitutionFromRow decodes one institution row.
func InstitutionFromRow(r Row) (student.Institution, error) {
	id, err := requireID(TableInstitutions, "id", r["id"])
	if err != nil {
		return student.Institution{}, err
	}
	return student.Institution{
		ID:   id,
		Name: r["nombre"],
		X:    intOr(r["x"], 0),
		Y:    intOr(r["y"], 0),
		Icon: r["icono"],
	}, nil
}

// InstitutionToRow encodes one institution row.
func InstitutionToRow(i student.Institution) Row {
	return Row{
		"id":     strconv.Itoa(i.ID),
		"nombre": i.Name,
		"x":      strconv.Itoa(i.X),
		"y":      strconv.Itoa(i.Y),
		"icono":  i.Icon,
	}
}

// ─────────────────────────────────────────────────────────────────────────
// milestones
// ─────────────────────────────────────────────────────────────────────────

// MilestoneFromRow decodes one milestone row. A malformed threshold is not
// recoverable: a wrong 0 would silently reorder the ladder.
func MilestoneFromRow(r Row) (milestone.Milestone, error) {
	threshold, err := strconv.Atoi(strings.TrimSpace(r["threshold"]))
	if err != nil {
		return milestone.Milestone{}, shared.WrapError("tablestore", "Decode", shared.ErrValidation, "milestones: bad threshold", err)
	}
	return milestone.Milestone{
		Label:     r["label"],
		Threshold: threshold,
		Color:     r["color"],
		Icon:      r["icon"],
	}, nil
}

// MilestoneToRow encodes one milestone row.
func MilestoneToRow(m milestone.Milestone) Row {
	return Row{
		"label":     m.Label,
		"threshold": strconv.Itoa(m.Threshold),
		"color":     m.Color,
		"icon":      m.Icon,
	}
}
