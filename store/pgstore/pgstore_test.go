package pgstore

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/blkchain/chainstate/store"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return New(sqlx.NewDb(db, "postgres")), mock
}

func expectCreate(mock sqlmock.Sqlmock, table string) {
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS " + table +
		" (key BYTEA PRIMARY KEY, value BYTEA NOT NULL)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestTreeCreatesTableOnce(t *testing.T) {
	db, mock := createMockDB(t)
	expectCreate(mock, "kv_hash_by_height")

	_, err := db.Tree("hash_by_height")
	require.NoError(t, err)
	_, err = db.Tree("hash_by_height")
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTreeInvalidName(t *testing.T) {
	db, mock := createMockDB(t)

	_, err := db.Tree("kv; DROP TABLE x")
	assert.ErrorIs(t, err, store.ErrInvalidTreeName)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	db, mock := createMockDB(t)
	expectCreate(mock, "kv_tx_by_hash")
	tr, err := db.Tree("tx_by_hash")
	require.NoError(t, err)

	query := regexp.QuoteMeta("SELECT value FROM kv_tx_by_hash WHERE key = $1")
	mock.ExpectQuery(query).
		WithArgs([]byte("k")).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("v")))
	mock.ExpectQuery(query).
		WithArgs([]byte("missing")).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	v, err := tr.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	v, err = tr.Get([]byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReturnsPrevious(t *testing.T) {
	db, mock := createMockDB(t)
	expectCreate(mock, "kv_utxo_by_outpoint")
	tr, err := db.Tree("utxo_by_outpoint")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_utxo_by_outpoint WHERE key = $1")).
		WithArgs([]byte("k")).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("old")))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv_utxo_by_outpoint (key, value) VALUES ($1, $2) " +
		"ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value")).
		WithArgs([]byte("k"), []byte("new")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	prev, err := tr.Insert([]byte("k"), []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), prev)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertError(t *testing.T) {
	db, mock := createMockDB(t)
	expectCreate(mock, "kv_t")
	tr, err := db.Tree("t")
	require.NoError(t, err)

	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_t WHERE key = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv_t")).
		WillReturnError(boom)

	_, err = tr.Insert([]byte("k"), []byte("v"))
	assert.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLast(t *testing.T) {
	db, mock := createMockDB(t)
	expectCreate(mock, "kv_hash_by_height")
	tr, err := db.Tree("hash_by_height")
	require.NoError(t, err)

	query := regexp.QuoteMeta("SELECT key, value FROM kv_hash_by_height ORDER BY key DESC LIMIT 1")
	mock.ExpectQuery(query).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}))
	mock.ExpectQuery(query).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).AddRow([]byte{0, 0, 0, 7}, []byte("h7")))

	k, v, err := tr.Last()
	require.NoError(t, err)
	assert.Nil(t, k)
	assert.Nil(t, v)

	k, v, err = tr.Last()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 7}, k)
	assert.Equal(t, []byte("h7"), v)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestForEach(t *testing.T) {
	db, mock := createMockDB(t)
	expectCreate(mock, "kv_sapling_nullifiers")
	tr, err := db.Tree("sapling_nullifiers")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, value FROM kv_sapling_nullifiers ORDER BY key")).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow([]byte("a"), []byte("1")).
			AddRow([]byte("b"), []byte("2")).
			AddRow([]byte("c"), []byte("3")))

	var keys []string
	require.NoError(t, tr.ForEach(func(key, _ []byte) bool {
		keys = append(keys, string(key))
		return len(keys) < 2
	}))
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClose(t *testing.T) {
	db, mock := createMockDB(t)
	mock.ExpectClose()

	require.NoError(t, db.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}
