package repository

import (
	"context"
	"database/sql"
	"errors"
	"oj_workbench/internal/common"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Behaviour shared by every backend.
func exerciseDraftRepository(t *testing.T, repo DraftRepository) {
	ctx := context.Background()

	_, err := repo.Load(ctx, "problem_1_cpp")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, repo.Save(ctx, "problem_1_cpp", []byte("int main(){}")))
	got, err := repo.Load(ctx, "problem_1_cpp")
	require.NoError(t, err)
	assert.Equal(t, "int main(){}", string(got))

	require.NoError(t, repo.Save(ctx, "problem_1_cpp", []byte("   ")))
	got, err = repo.Load(ctx, "problem_1_cpp")
	require.NoError(t, err)
	assert.Equal(t, "   ", string(got))

	require.NoError(t, repo.Delete(ctx, "problem_1_cpp"))
	_, err = repo.Load(ctx, "problem_1_cpp")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryDraftRepository(t *testing.T) {
	exerciseDraftRepository(t, NewMemoryDraftRepository(1))
}

func TestMemoryDraftRepository_EmptyKey(t *testing.T) {
	err := NewMemoryDraftRepository(1).Save(context.Background(), "", []byte("x"))
	assert.Error(t, err)
}

func TestRedisDraftRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	repo := NewRedisDraftRepository(rdb, "drafts", time.Hour)
	exerciseDraftRepository(t, repo)

	require.NoError(t, repo.Save(context.Background(), "problem_2_c", []byte("x")))
	assert.True(t, mr.Exists("drafts:problem_2_c"))
	assert.Equal(t, time.Hour, mr.TTL("drafts:problem_2_c"))
}

func TestRedisDraftRepository_BackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	repo := NewRedisDraftRepository(rdb, "", 0)
	err := repo.Save(context.Background(), "problem_1_cpp", []byte("x"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNotFound)
}

func TestPgDraftRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := NewPgDraftRepository(db)
	ctx := context.Background()

	t.Run("Save upserts", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO drafts (draft_key, value, updated_at)`)).
			WithArgs("problem_1001_cpp", "int main(){}").
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Save(ctx, "problem_1001_cpp", []byte("int main(){}")))
	})

	t.Run("Load hit", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM drafts WHERE draft_key = $1`)).
			WithArgs("problem_1001_cpp").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("int main(){}"))
		got, err := repo.Load(ctx, "problem_1001_cpp")
		require.NoError(t, err)
		assert.Equal(t, "int main(){}", string(got))
	})

	t.Run("Load miss", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM drafts`)).
			WithArgs("problem_9_c").
			WillReturnError(sql.ErrNoRows)
		_, err := repo.Load(ctx, "problem_9_c")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("Save failure is wrapped", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO drafts`)).
			WillReturnError(errors.New("connection reset"))
		err := repo.Save(ctx, "problem_1_c", []byte("x"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pgDraftRepository.Save")
	})

	t.Run("Delete", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM drafts WHERE draft_key = $1`)).
			WithArgs("problem_1_c").
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Delete(ctx, "problem_1_c"))
	})

	t.Run("EnsureDraftSchema", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS drafts`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		require.NoError(t, EnsureDraftSchema(ctx, db))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
