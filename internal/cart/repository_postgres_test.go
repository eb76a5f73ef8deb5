package cart

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepository_Adjust(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO carts").WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FOR UPDATE").WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"items"}).AddRow([]byte(`{"1":2,"5":1}`)))
	mock.ExpectExec("UPDATE carts").WithArgs([]byte(`{"1":2}`), "p1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	items, err := NewPostgresRepository(db).Adjust(context.Background(), "p1", 5, -1)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 2}, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetMissingCart(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT items FROM carts").WithArgs("p9").WillReturnRows(sqlmock.NewRows([]string{"items"}))

	items, err := NewPostgresRepository(db).Get(context.Background(), "p9")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDecodeItems_SkipsBadEntries(t *testing.T) {
	items, err := decodeItems([]byte(`{"1":2,"x":3,"4":0}`))
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 2}, items)

	_, err = decodeItems([]byte(`[1,2]`))
	assert.Error(t, err)
}
