package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kartikasari/ujianku/internal/model"
	"github.com/kartikasari/ujianku/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func floatPtr(v float64) *float64 { return &v }

func TestComputeAdjustmentPercentage(t *testing.T) {
	req := AdjustmentRequest{Kind: model.AdjustmentPercentage, Percentage: floatPtr(10)}

	after, applies, data, err := computeAdjustment(req, 70, 100)
	require.NoError(t, err)
	assert.True(t, applies)
	assert.InDelta(t, 77, after, 1e-9)
	assert.Equal(t, float64(10), data["percentage"])

	t.Run("clamps to exam max", func(t *testing.T) {
		after, applies, _, err := computeAdjustment(req, 95, 100)
		require.NoError(t, err)
		assert.True(t, applies)
		assert.Equal(t, float64(100), after)
	})

	t.Run("missing percentage", func(t *testing.T) {
		_, _, _, err := computeAdjustment(AdjustmentRequest{Kind: model.AdjustmentPercentage}, 70, 100)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestComputeAdjustmentMinimum(t *testing.T) {
	req := AdjustmentRequest{Kind: model.AdjustmentMinimum, Minimum: floatPtr(60)}

	t.Run("raises scores below the floor", func(t *testing.T) {
		after, applies, data, err := computeAdjustment(req, 45, 100)
		require.NoError(t, err)
		assert.True(t, applies)
		assert.Equal(t, float64(60), after)
		assert.Equal(t, float64(60), data["minimum"])
	})

	t.Run("skips scores at the floor", func(t *testing.T) {
		after, applies, _, err := computeAdjustment(req, 60, 100)
		require.NoError(t, err)
		assert.False(t, applies)
		assert.Equal(t, float64(60), after)
	})

	t.Run("skips scores above the floor", func(t *testing.T) {
		_, applies, _, err := computeAdjustment(req, 88, 100)
		require.NoError(t, err)
		assert.False(t, applies)
	})

	t.Run("floor above exam max clamps to max", func(t *testing.T) {
		high := AdjustmentRequest{Kind: model.AdjustmentMinimum, Minimum: floatPtr(150)}
		after, applies, _, err := computeAdjustment(high, 45, 100)
		require.NoError(t, err)
		assert.True(t, applies)
		assert.Equal(t, float64(100), after)
	})

	t.Run("missing floor", func(t *testing.T) {
		_, _, _, err := computeAdjustment(AdjustmentRequest{Kind: model.AdjustmentMinimum}, 45, 100)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestComputeAdjustmentManual(t *testing.T) {
	t.Run("sets the requested value", func(t *testing.T) {
		req := AdjustmentRequest{Kind: model.AdjustmentManual, Value: floatPtr(82)}
		after, applies, data, err := computeAdjustment(req, 40, 100)
		require.NoError(t, err)
		assert.True(t, applies)
		assert.Equal(t, float64(82), after)
		assert.Equal(t, float64(82), data["requested_value"])
	})

	t.Run("clamps to exam max", func(t *testing.T) {
		req := AdjustmentRequest{Kind: model.AdjustmentManual, Value: floatPtr(120)}
		after, _, _, err := computeAdjustment(req, 40, 100)
		require.NoError(t, err)
		assert.Equal(t, float64(100), after)
	})

	t.Run("rejects negative value", func(t *testing.T) {
		req := AdjustmentRequest{Kind: model.AdjustmentManual, Value: floatPtr(-5)}
		_, _, _, err := computeAdjustment(req, 40, 100)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("missing value", func(t *testing.T) {
		_, _, _, err := computeAdjustment(AdjustmentRequest{Kind: model.AdjustmentManual}, 40, 100)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestComputeAdjustmentUnknownKind(t *testing.T) {
	_, _, _, err := computeAdjustment(AdjustmentRequest{Kind: "curve"}, 40, 100)
	assert.ErrorIs(t, err, ErrValidation)
}

func newAdjustmentTestService(db *gorm.DB) AdjustmentService {
	return NewAdjustmentService(
		repository.NewExamRepository(db),
		repository.NewAttemptRepository(db),
		repository.NewAdjustmentRepository(db),
		db,
	)
}

func examScoreRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "school_id", "max_score", "passing_score"}).
		AddRow(1, 1, 100.0, 60.0)
}

func TestApplyAdjustmentPercentage(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newAdjustmentTestService(db)

	mock.ExpectQuery(`SELECT \* FROM "exams"`).WillReturnRows(examScoreRows())
	mock.ExpectQuery(`SELECT \* FROM "exam_attempts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam_id", "student_id", "status", "total_score"}).
			AddRow(3, 1, 10, model.AttemptCompleted, 70.0).
			AddRow(4, 1, 11, model.AttemptCompleted, 95.0))
	mock.ExpectQuery(`SELECT \* FROM "answers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "attempt_id", "question_id"}))

	// One transaction per attempt: audit row plus score override.
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "grade_adjustments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`UPDATE "exam_attempts"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "grade_adjustments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(`UPDATE "exam_attempts"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	actor := model.Actor{UserID: 2, Role: "teacher", SchoolID: 1}
	req := AdjustmentRequest{Kind: model.AdjustmentPercentage, Percentage: floatPtr(10)}
	outcome, err := svc.ApplyAdjustment(context.Background(), actor, 1, req)
	require.NoError(t, err)

	assert.Equal(t, []uint{10, 11}, outcome.SucceededStudentIDs)
	assert.Empty(t, outcome.FailedStudentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyAdjustmentIsolatesStudentFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newAdjustmentTestService(db)

	mock.ExpectQuery(`SELECT \* FROM "exams"`).WillReturnRows(examScoreRows())
	mock.ExpectQuery(`SELECT \* FROM "exam_attempts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam_id", "student_id", "status", "total_score"}).
			AddRow(3, 1, 10, model.AttemptCompleted, 70.0).
			AddRow(4, 1, 11, model.AttemptCompleted, 80.0))
	mock.ExpectQuery(`SELECT \* FROM "answers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "attempt_id", "question_id"}))

	// The first student's transaction rolls back; the second still commits.
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "grade_adjustments"`).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "grade_adjustments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`UPDATE "exam_attempts"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	actor := model.Actor{UserID: 2, Role: "teacher", SchoolID: 1}
	req := AdjustmentRequest{Kind: model.AdjustmentPercentage, Percentage: floatPtr(10)}
	outcome, err := svc.ApplyAdjustment(context.Background(), actor, 1, req)
	require.NoError(t, err)

	assert.Equal(t, []uint{10}, outcome.FailedStudentIDs)
	assert.Equal(t, []uint{11}, outcome.SucceededStudentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkApplyAdjustmentsIsolatesItems(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newAdjustmentTestService(db)

	// First item is missing its percentage and fails before any write.
	mock.ExpectQuery(`SELECT \* FROM "exams"`).WillReturnRows(examScoreRows())
	mock.ExpectQuery(`SELECT \* FROM "exam_attempts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam_id", "student_id", "status", "total_score"}).
			AddRow(3, 1, 10, model.AttemptCompleted, 45.0))
	mock.ExpectQuery(`SELECT \* FROM "answers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "attempt_id", "question_id"}))

	// Second item applies a minimum floor to the same attempt.
	mock.ExpectQuery(`SELECT \* FROM "exams"`).WillReturnRows(examScoreRows())
	mock.ExpectQuery(`SELECT \* FROM "exam_attempts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam_id", "student_id", "status", "total_score"}).
			AddRow(3, 1, 10, model.AttemptCompleted, 45.0))
	mock.ExpectQuery(`SELECT \* FROM "answers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "attempt_id", "question_id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "grade_adjustments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`UPDATE "exam_attempts"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	actor := model.Actor{UserID: 2, Role: "teacher", SchoolID: 1}
	reqs := []AdjustmentRequest{
		{Kind: model.AdjustmentPercentage},
		{Kind: model.AdjustmentMinimum, Minimum: floatPtr(60)},
	}
	outcome, err := svc.BulkApplyAdjustments(context.Background(), actor, 1, reqs)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.FailureCount)
	assert.Equal(t, 1, outcome.SuccessCount)
	require.Len(t, outcome.Items, 2)
	assert.Contains(t, outcome.Items[0].Error, "percentage")
	assert.Equal(t, []uint{10}, outcome.Items[1].Outcome.SucceededStudentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentRejectsForeignSchool(t *testing.T) {
	actor := model.Actor{UserID: 2, Role: "teacher", SchoolID: 99}

	t.Run("apply", func(t *testing.T) {
		db, mock := setupMockDB(t)
		svc := newAdjustmentTestService(db)

		mock.ExpectQuery(`SELECT \* FROM "exams"`).WillReturnRows(examScoreRows())

		req := AdjustmentRequest{Kind: model.AdjustmentPercentage, Percentage: floatPtr(10)}
		_, err := svc.ApplyAdjustment(context.Background(), actor, 1, req)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.NoError(t, mock.ExpectationsWereMet(), "no attempt is read or written for a foreign actor")
	})

	t.Run("revert", func(t *testing.T) {
		db, mock := setupMockDB(t)
		svc := newAdjustmentTestService(db)

		adjustmentRows := sqlmock.NewRows([]string{
			"id", "exam_id", "student_id", "kind", "before_value", "after_value", "reverted_at",
		}).AddRow(5, 1, 10, "percentage", 70.0, 77.0, nil)
		mock.ExpectQuery(`SELECT \* FROM "grade_adjustments"`).WillReturnRows(adjustmentRows)
		mock.ExpectQuery(`SELECT \* FROM "exams"`).WillReturnRows(examScoreRows())

		err := svc.RevertAdjustment(context.Background(), actor, 5)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("statistics", func(t *testing.T) {
		db, mock := setupMockDB(t)
		svc := newAdjustmentTestService(db)

		mock.ExpectQuery(`SELECT \* FROM "exams"`).WillReturnRows(examScoreRows())

		_, err := svc.AdjustmentStatistics(context.Background(), actor, 1)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRevertAdjustment(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newAdjustmentTestService(db)

	adjustmentRows := sqlmock.NewRows([]string{
		"id", "exam_id", "student_id", "kind", "before_value", "after_value", "reverted_at",
	}).AddRow(5, 1, 10, "percentage", 70.0, 77.0, nil)
	mock.ExpectQuery(`SELECT \* FROM "grade_adjustments"`).WillReturnRows(adjustmentRows)
	mock.ExpectQuery(`SELECT \* FROM "exams"`).WillReturnRows(examScoreRows())

	attemptRows := sqlmock.NewRows([]string{"id", "exam_id", "student_id", "status", "total_score"}).
		AddRow(3, 1, 10, model.AttemptCompleted, 77.0)
	mock.ExpectQuery(`SELECT \* FROM "exam_attempts"`).WillReturnRows(attemptRows)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "exam_attempts"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "grade_adjustments"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	actor := model.Actor{UserID: 2, Role: "teacher", SchoolID: 1}
	err := svc.RevertAdjustment(context.Background(), actor, 5)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevertAdjustmentAlreadyReverted(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newAdjustmentTestService(db)

	reverted := time.Now()
	adjustmentRows := sqlmock.NewRows([]string{
		"id", "exam_id", "student_id", "kind", "before_value", "after_value", "reverted_at",
	}).AddRow(5, 1, 10, "percentage", 70.0, 77.0, reverted)
	mock.ExpectQuery(`SELECT \* FROM "grade_adjustments"`).WillReturnRows(adjustmentRows)
	mock.ExpectQuery(`SELECT \* FROM "exams"`).WillReturnRows(examScoreRows())

	actor := model.Actor{UserID: 2, Role: "teacher", SchoolID: 1}
	err := svc.RevertAdjustment(context.Background(), actor, 5)
	assert.ErrorIs(t, err, ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentStatistics(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := newAdjustmentTestService(db)

	reverted := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "exams"`).WillReturnRows(examScoreRows())
	rows := sqlmock.NewRows([]string{
		"id", "exam_id", "student_id", "kind", "before_value", "after_value", "reverted_at",
	}).
		AddRow(1, 1, 10, "percentage", 70.0, 80.0, nil).
		AddRow(2, 1, 11, "minimum", 50.0, 60.0, reverted).
		AddRow(3, 1, 12, "manual", 90.0, 85.0, nil)
	mock.ExpectQuery(`SELECT \* FROM "grade_adjustments"`).WillReturnRows(rows)

	stats, err := svc.AdjustmentStatistics(context.Background(), model.Actor{UserID: 2, SchoolID: 1}, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalCount)
	assert.Equal(t, 1, stats.RevertedCount)
	assert.Equal(t, 1, stats.CountsByKind["percentage"])
	assert.Equal(t, 1, stats.CountsByKind["minimum"])
	assert.Equal(t, 1, stats.CountsByKind["manual"])

	// The reverted minimum is excluded from the deltas.
	assert.Equal(t, float64(10), stats.TotalIncrease)
	assert.Equal(t, float64(5), stats.TotalDecrease)
	assert.Equal(t, float64(5), stats.NetDelta)
	assert.NoError(t, mock.ExpectationsWereMet())
}
