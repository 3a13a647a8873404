package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classquest/classquest/internal/domain/shared"
	"github.com/classquest/classquest/internal/domain/student"
)

func TestSaveAndGetStudent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.addStudent(t, student.Student{ID: 1, Name: "Ana", XP: 40, InstitutionID: 1})

	s, err := env.registry.Student(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ana", s.Name)
	assert.Equal(t, 40, s.XP)
}

func TestSaveUpsertsByID(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.addStudent(t, student.Student{ID: 1, Name: "Ana", XP: 40})
	env.addStudent(t, student.Student{ID: 1, Name: "Ana Maria", XP: 50})

	students, err := env.registry.Students(ctx)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Ana Maria", students[0].Name)
	assert.Equal(t, 50, students[0].XP)
}

func TestSaveValidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.registry.Save(ctx, student.Student{ID: 0, Name: "Ana"})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))

	err = env.registry.Save(ctx, student.Student{ID: 1, Name: "   "})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestSaveDefaultsInstitution(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.addStudent(t, student.Student{ID: 1, Name: "Ana"})

	s, err := env.registry.Student(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, student.DefaultInstitutionID, s.InstitutionID)
}

func TestStudentNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registry.Student(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestByInstitutionSortsByXPDescending(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.addStudent(t, student.Student{ID: 1, Name: "Ana", XP: 40, InstitutionID: 1})
	env.addStudent(t, student.Student{ID: 2, Name: "Luis", XP: 90, InstitutionID: 1})
	env.addStudent(t, student.Student{ID: 3, Name: "Mia", XP: 60, InstitutionID: 2})
	env.addStudent(t, student.Student{ID: 4, Name: "Sol", XP: 75, InstitutionID: 1})

	students, err := env.registry.ByInstitution(ctx, 1)
	require.NoError(t, err)
	require.Len(t, students, 3)
	assert.Equal(t, []int{2, 4, 1}, []int{students[0].ID, students[1].ID, students[2].ID})
}

func TestInstitutionsSeededOnFirstRead(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	insts, err := env.registry.Institutions(ctx)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	assert.Equal(t, student.DefaultInstitution(), insts[0])
}

func TestSaveInstitutionsReplacesTable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	err := env.registry.SaveInstitutions(ctx, []student.Institution{
		{ID: 1, Name: "North", X: 10, Y: 20},
		{ID: 2, Name: "South", X: 30, Y: 40, Icon: "assets/tower.png"},
	})
	require.NoError(t, err)

	insts, err := env.registry.Institutions(ctx)
	require.NoError(t, err)
	require.Len(t, insts, 2)

	inst, err := env.registry.Institution(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "South", inst.Name)

	_, err = env.registry.Institution(ctx, 3)
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}
