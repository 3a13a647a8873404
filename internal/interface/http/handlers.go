package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/classquest/classquest/internal/domain/attendance"
	"github.com/classquest/classquest/internal/domain/milestone"
	"github.com/classquest/classquest/internal/domain/shared"
	"github.com/classquest/classquest/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════
// DTOs
// ══════════════════════════════════════════════════════════════════════════

type studentDTO struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Group         string `json:"group"`
	XP            int    `json:"xp"`
	InstitutionID int    `json:"institution_id"`
	Phone         string `json:"phone,omitempty"`
	Teacher       string `json:"teacher,omitempty"`
	PendingDelta  int    `json:"pending_delta,omitempty"`
	PendingReason string `json:"pending_reason,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	Trinket       string `json:"trinket,omitempty"`
	TrinketDesc   string `json:"trinket_desc,omitempty"`
}

func toStudentDTO(s student.Student) studentDTO {
	return studentDTO{
		ID:            s.ID,
		Name:          s.Name,
		Group:         s.Group,
		XP:            s.XP,
		InstitutionID: s.InstitutionID,
		Phone:         s.Phone,
		Teacher:       s.Teacher,
		PendingDelta:  s.PendingDelta,
		PendingReason: s.PendingReason,
		Avatar:        s.Avatar,
		Trinket:       s.Trinket,
		TrinketDesc:   s.TrinketDesc,
	}
}

func (d studentDTO) toDomain() student.Student {
	return student.Student{
		ID:            d.ID,
		Name:          d.Name,
		Group:         d.Group,
		XP:            d.XP,
		InstitutionID: d.InstitutionID,
		Phone:         d.Phone,
		Teacher:       d.Teacher,
		PendingDelta:  d.PendingDelta,
		PendingReason: d.PendingReason,
		Avatar:        d.Avatar,
		Trinket:       d.Trinket,
		TrinketDesc:   d.TrinketDesc,
	}
}

type institutionDTO struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Icon string `json:"icon,omitempty"`
}

type entryDTO struct {
	Timestamp string `json:"timestamp"`
	StudentID int    `json:"student_id"`
	Name      string `json:"name"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
}

type noteDTO struct {
	Timestamp string `json:"timestamp"`
	StudentID int    `json:"student_id"`
	Name      string `json:"name"`
	Text      string `json:"text"`
}

type milestoneDTO struct {
	Label     string `json:"label"`
	Threshold int    `json:"threshold"`
	Color     string `json:"color,omitempty"`
	Icon      string `json:"icon,omitempty"`
}

type levelDTO struct {
	Level         int     `json:"level"`
	Label         string  `json:"label"`
	Threshold     int     `json:"threshold"`
	Color         string  `json:"color,omitempty"`
	Icon          string  `json:"icon,omitempty"`
	Progress      float64 `json:"progress"`
	Remaining     int     `json:"remaining"`
	NextLabel     string  `json:"next_label"`
	NextThreshold int     `json:"next_threshold"`
}

// ══════════════════════════════════════════════════════════════════════════
// Error mapping
// ══════════════════════════════════════════════════════════════════════════

// httpError maps the domain error taxonomy onto status codes: not found
// 404, validation 400, configuration 503, backend I/O 502, anything else
// 500.
func httpError(err error) error {
	switch {
	case shared.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case shared.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case shared.IsConfiguration(err):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case shared.IsBackendIO(err):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid ID in path")
	}
	return id, nil
}

func queryInt(c echo.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return fallback
	}
	return v
}

// ══════════════════════════════════════════════════════════════════════════
// Roster
// ══════════════════════════════════════════════════════════════════════════

func (s *Server) handleListStudents(c echo.Context) error {
	students, err := s.registry.Students(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	out := make([]studentDTO, 0, len(students))
	for _, st := range students {
		out = append(out, toStudentDTO(st))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetStudent(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	st, err := s.registry.Student(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toStudentDTO(st))
}

func (s *Server) handleSaveStudent(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var dto studentDTO
	if err := c.Bind(&dto); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	dto.ID = id
	if err := s.registry.Save(c.Request().Context(), dto.toDomain()); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListInstitutions(c echo.Context) error {
	insts, err := s.registry.Institutions(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	out := make([]institutionDTO, 0, len(insts))
	for _, inst := range insts {
		out = append(out, institutionDTO{ID: inst.ID, Name: inst.Name, X: inst.X, Y: inst.Y, Icon: inst.Icon})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleInstitutionStudents(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.registry.Institution(ctx, id); err != nil {
		return httpError(err)
	}
	students, err := s.registry.ByInstitution(ctx, id)
	if err != nil {
		return httpError(err)
	}
	out := make([]studentDTO, 0, len(students))
	for _, st := range students {
		out = append(out, toStudentDTO(st))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleSaveInstitutions(c echo.Context) error {
	var dtos []institutionDTO
	if err := c.Bind(&dtos); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	insts := make([]student.Institution, 0, len(dtos))
	for _, d := range dtos {
		insts = append(insts, student.Institution{ID: d.ID, Name: d.Name, X: d.X, Y: d.Y, Icon: d.Icon})
	}
	if err := s.registry.SaveInstitutions(c.Request().Context(), insts); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════
// Ledger
// ══════════════════════════════════════════════════════════════════════════

type applyDeltaRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

func (s *Server) handleApplyDelta(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req applyDeltaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	entry, err := s.ledger.ApplyDelta(c.Request().Context(), id, req.Delta, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, entryDTO{
		Timestamp: entry.Timestamp,
		StudentID: entry.StudentID,
		Name:      entry.Name,
		Delta:     entry.Delta,
		Reason:    entry.Reason,
	})
}

func (s *Server) handleLedgerEntries(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	limit := queryInt(c, "limit", 0)
	entries, err := s.ledger.Entries(c.Request().Context(), id, limit)
	if err != nil {
		return httpError(err)
	}
	out := make([]entryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryDTO{
			Timestamp: e.Timestamp,
			StudentID: e.StudentID,
			Name:      e.Name,
			Delta:     e.Delta,
			Reason:    e.Reason,
		})
	}
	return c.JSON(http.StatusOK, out)
}

type deleteByTimestampsRequest struct {
	Timestamps []string `json:"timestamps"`
}

func (s *Server) handleDeleteEntries(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req deleteByTimestampsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	removed, err := s.ledger.DeleteEntries(c.Request().Context(), id, req.Timestamps)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleReconcile(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	balance, err := s.ledger.Reconcile(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"balance": balance})
}

func (s *Server) handleApplyPending(c echo.Context) error {
	applied, err := s.ledger.ApplyPending(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"applied": applied})
}

// ══════════════════════════════════════════════════════════════════════════
// Attendance
// ══════════════════════════════════════════════════════════════════════════

type attendanceRequest struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

func (s *Server) handleToggleAttendance(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req attendanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	status, err := s.attendance.Toggle(c.Request().Context(), id, req.Date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"date": req.Date, "status": string(status)})
}

func (s *Server) handleSetAttendance(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req attendanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.attendance.Set(c.Request().Context(), id, req.Date, attendance.Status(req.Status)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMonthAttendance(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	now := time.Now()
	year := queryInt(c, "year", now.Year())
	month := queryInt(c, "month", int(now.Month()))
	marks, err := s.attendance.MonthMap(c.Request().Context(), id, year, month)
	if err != nil {
		return httpError(err)
	}
	out := make(map[string]string, len(marks))
	for day, status := range marks {
		out[strconv.Itoa(day)] = string(status)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleMonthSummary(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	now := time.Now()
	year := queryInt(c, "year", now.Year())
	month := queryInt(c, "month", int(now.Month()))
	sum, err := s.attendance.MonthSummary(c.Request().Context(), id, year, month)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{
		"present": sum.Present,
		"tardy":   sum.Tardy,
		"absent":  sum.Absent,
	})
}

// ══════════════════════════════════════════════════════════════════════════
// Observations
// ══════════════════════════════════════════════════════════════════════════

type observationRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAppendObservation(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req observationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	note, err := s.observations.Append(c.Request().Context(), id, req.Text)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, noteDTO{
		Timestamp: note.Timestamp,
		StudentID: note.StudentID,
		Name:      note.Name,
		Text:      note.Text,
	})
}

func (s *Server) handleListObservations(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	limit := queryInt(c, "limit", 0)
	notes, err := s.observations.Notes(c.Request().Context(), id, limit)
	if err != nil {
		return httpError(err)
	}
	out := make([]noteDTO, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteDTO{Timestamp: n.Timestamp, StudentID: n.StudentID, Name: n.Name, Text: n.Text})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleDeleteObservations(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req deleteByTimestampsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	removed, err := s.observations.DeleteByTimestamps(c.Request().Context(), id, req.Timestamps)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"removed": removed})
}

// ══════════════════════════════════════════════════════════════════════════
// Milestones
// ══════════════════════════════════════════════════════════════════════════

func (s *Server) handleMilestoneTable(c echo.Context) error {
	table, err := s.levels.Table(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	out := make([]milestoneDTO, 0, len(table))
	for _, m := range table {
		out = append(out, milestoneDTO{Label: m.Label, Threshold: m.Threshold, Color: m.Color, Icon: m.Icon})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleSaveMilestones(c echo.Context) error {
	var dtos []milestoneDTO
	if err := c.Bind(&dtos); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	table := make(milestone.Table, 0, len(dtos))
	for _, d := range dtos {
		table = append(table, milestone.Milestone{Label: d.Label, Threshold: d.Threshold, Color: d.Color, Icon: d.Icon})
	}
	if err := s.levels.SaveTable(c.Request().Context(), table); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleStudentLevel(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	lvl, number, err := s.levels.LevelFor(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, levelDTO{
		Level:         number,
		Label:         lvl.Current.Label,
		Threshold:     lvl.Current.Threshold,
		Color:         lvl.Current.Color,
		Icon:          lvl.Current.Icon,
		Progress:      lvl.Progress,
		Remaining:     lvl.Remaining,
		NextLabel:     lvl.NextLabel,
		NextThreshold: lvl.NextThreshold,
	})
}
