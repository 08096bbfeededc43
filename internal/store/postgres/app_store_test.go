package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
)

func TestAppStore_UpsertApp(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAppStoreWithPool(mock, "apps")
	require.NoError(t, err)

	record := indexer.AppRecord{
		ID:            "d41d8cd98f00b204e9800998ecf8427e",
		URL:           "https://orrery.example",
		Title:         "Orrery",
		Description:   "An interactive solar system model.",
		ImageID:       "d41d8cd98f00b204e9800998ecf8427e",
		AuthorName:    "Ada",
		AppName:       "Orrery",
		SocialPostURL: "https://social.example/p/1",
	}

	mock.ExpectExec("INSERT INTO apps").
		WithArgs(
			record.ID,
			record.URL,
			record.Title,
			record.Description,
			record.ImageID,
			record.AuthorName,
			record.AppName,
			record.SocialPostURL,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.UpsertApp(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppStore_UpsertApp_ExecError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAppStoreWithPool(mock, "apps")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO apps").
		WithArgs("id-1", "", "", "", "", "", "", "").
		WillReturnError(errors.New("connection reset"))

	err = store.UpsertApp(context.Background(), indexer.AppRecord{ID: "id-1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "id-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppStore_UpsertApp_RequiresID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAppStoreWithPool(mock, "apps")
	require.NoError(t, err)

	require.Error(t, store.UpsertApp(context.Background(), indexer.AppRecord{}))
}

func TestNewAppStoreWithPool_ValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewAppStoreWithPool(mock, "apps; DROP TABLE apps")
	require.Error(t, err)

	store, err := NewAppStoreWithPool(mock, "")
	require.NoError(t, err)
	require.Equal(t, "apps", store.table)

	_, err = NewAppStoreWithPool(nil, "apps")
	require.Error(t, err)
}
