// internal/recorder/postgres_test.go
package recorder

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

func TestPostgresRecorderRecordStep(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO task_steps").
		WithArgs("task-1", 1, "open_dialog",
			pgxmock.AnyArg(), pgxmock.AnyArg(), "Clicked element 3: Add project",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	r := NewPostgresRecorderWithPool(mock, zaptest.NewLogger(t))
	require.NoError(t, r.RecordStep(context.Background(), "task-1", sampleStep(1)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorderFinalize(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO task_results").
		WithArgs("task-1", "FAILED", "sub-goal \"Set the name\" exhausted its attempts", 4).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	r := NewPostgresRecorderWithPool(mock, zaptest.NewLogger(t))
	require.NoError(t, r.Finalize(context.Background(), schemas.TaskResult{
		TaskID: "task-1",
		Status: schemas.TaskFailed,
		Reason: "sub-goal \"Set the name\" exhausted its attempts",
		Steps:  make([]schemas.StepRecord, 4),
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorderExecFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO task_steps").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	r := NewPostgresRecorderWithPool(mock, zaptest.NewLogger(t))
	err = r.RecordStep(context.Background(), "task-1", sampleStep(1))
	assert.ErrorIs(t, err, assert.AnError)
}
