package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logRowColumns = []string{"id", "channel", "recipients", "subject", "body", "status", "provider_id", "error", "attempts", "created_at", "updated_at"}

func TestPostgresRepository_ListDecodesRecipients(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM message_logs WHERE channel = \$1 AND status = \$2 ORDER BY created_at DESC, id LIMIT \$3 OFFSET \$4`).
		WithArgs(ChannelEmail, StatusFailed, 20, 20).
		WillReturnRows(sqlmock.NewRows(append(logRowColumns, "count")).
			AddRow("3f0c", ChannelEmail, "{a@example.com,b@example.com}", "", "hi", StatusFailed, "", "boom", 1, now, now, 21))

	logs, total, err := NewPostgresRepository(db).List(context.Background(), Filter{Channel: ChannelEmail, Status: StatusFailed, Limit: 20, Offset: 20})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, logs, 1)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, logs[0].Recipients)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_RecordAttemptNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("UPDATE message_logs").WithArgs(StatusSent, "em_1", "", "3f0c").
		WillReturnRows(sqlmock.NewRows(logRowColumns))

	_, err = NewPostgresRepository(db).RecordAttempt(context.Background(), "3f0c", StatusSent, "em_1", "")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPostgresRepository_UpdateByProviderID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE message_logs SET status (.+) WHERE provider_id = \$3 AND status = ANY\(\$4\)`).
		WithArgs(StatusDelivered, "", "em_1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	n, err := repo.UpdateByProviderID(context.Background(), "em_1", StatusDelivered, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// an empty provider id never touches the table
	n, err = repo.UpdateByProviderID(context.Background(), "", StatusDelivered, "")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
