// pkg/orm/repository_test.go
package orm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talos-store/pkg/db"
	"talos-store/pkg/orm/ormtest"
)

type member struct {
	ID        int64      `db:"id"`
	Name      string     `db:"name"`
	Age       int        `db:"age"`
	Active    bool       `db:"active"`
	Score     float64    `db:"score"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

// scenarioUser mirrors the db-test record: the id column is renamed on the Go side.
type scenarioUser struct {
	UserID int    `db:"id"`
	Name   string `db:"name"`
	Age    int    `db:"age"`
}

var memberColumns = []string{"id", "name", "age", "active", "score", "created_at", "updated_at"}

func newMemberRepo(t *testing.T) (*Repository[member], *ormtest.MemDB) {
	t.Helper()
	reg := NewRegistry()
	MustRegister[member](reg, "member")
	engine, mem := newMemEngine(t, "mysql", WithRegistry(reg))
	mem.CreateTable("member", memberColumns...)
	repo, err := NewRepository[member](engine)
	require.NoError(t, err)
	return repo, mem
}

func sampleMember(id int64) member {
	return member{
		ID:        id,
		Name:      fmt.Sprintf("member-%d", id),
		Age:       30,
		Active:    true,
		Score:     9.5,
		CreatedAt: time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestNewRepository(t *testing.T) {
	engine, _ := newMemEngine(t, "mysql")

	_, err := NewRepository[member](engine)
	assert.ErrorIs(t, err, ErrNotRegistered)

	require.NoError(t, Register[member](engine.Registry(), "members"))
	repo, err := NewRepository[member](engine)
	require.NoError(t, err)
	assert.Equal(t, "members", repo.TableName())
}

func TestInsert(t *testing.T) {
	ctx := context.Background()

	t.Run("StatementAndBindOrder", func(t *testing.T) {
		repo, mem := newMemberRepo(t)
		n, err := repo.Insert(ctx, sampleMember(1))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		st := mem.LastStatement()
		assert.Equal(t, "INSERT INTO member (id,name,age,active,score,created_at,updated_at) VALUES (?,?,?,?,?,?,?)", st.Query)
		require.Len(t, st.Args, 7)
		assert.Equal(t, int64(1), st.Args[0])
		assert.Equal(t, "member-1", st.Args[1])
		assert.Equal(t, int64(30), st.Args[2])
		assert.Equal(t, true, st.Args[3])
		assert.Equal(t, 9.5, st.Args[4])
		assert.True(t, time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC).Equal(st.Args[5].(time.Time)))
		assert.Nil(t, st.Args[6])
	})

	t.Run("PostgresPlaceholders", func(t *testing.T) {
		reg := NewRegistry()
		MustRegister[member](reg, "member")
		engine, mem := newMemEngine(t, "postgres", WithRegistry(reg))
		mem.CreateTable("member", memberColumns...)
		repo, err := NewRepository[member](engine)
		require.NoError(t, err)

		_, err = repo.Insert(ctx, sampleMember(1))
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO member (id,name,age,active,score,created_at,updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7)", mem.LastStatement().Query)
	})

	t.Run("ExecutionErrorKeepsCause", func(t *testing.T) {
		repo, mem := newMemberRepo(t)
		cause := errors.New("Duplicate entry '1' for key 'PRIMARY'")
		mem.FailNext(cause)

		_, err := repo.Insert(ctx, sampleMember(1))
		assert.ErrorIs(t, err, ErrExecution)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("MissingTableIsExecutionError", func(t *testing.T) {
		reg := NewRegistry()
		MustRegister[member](reg, "nowhere")
		engine, _ := newMemEngine(t, "mysql", WithRegistry(reg))
		repo, err := NewRepository[member](engine)
		require.NoError(t, err)

		_, err = repo.Insert(ctx, sampleMember(1))
		assert.ErrorIs(t, err, ErrExecution)
	})

	t.Run("UnserializableRecord", func(t *testing.T) {
		type bad struct {
			ID   int            `db:"id"`
			Tags map[string]int `db:"tags"`
		}
		reg := NewRegistry()
		MustRegister[bad](reg, "bad")
		engine, mem := newMemEngine(t, "mysql", WithRegistry(reg))
		repo, err := NewRepository[bad](engine)
		require.NoError(t, err)

		_, err = repo.Insert(ctx, bad{ID: 1})
		assert.ErrorIs(t, err, ErrSerialization)
		assert.Empty(t, mem.Statements(), "nothing may reach the store")
	})
}

func TestInsertThenFind_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newMemberRepo(t)

	updated := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	in := sampleMember(7)
	in.UpdatedAt = &updated

	_, err := repo.Insert(ctx, in)
	require.NoError(t, err)

	got, err := repo.Find(ctx, "id", in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.Age, got.Age)
	assert.Equal(t, in.Active, got.Active)
	assert.Equal(t, in.Score, got.Score)
	assert.True(t, in.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, updated.Equal(*got.UpdatedAt))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("KeyBoundLastAndExcludedFromSet", func(t *testing.T) {
		repo, mem := newMemberRepo(t)
		_, err := repo.Insert(ctx, sampleMember(3))
		require.NoError(t, err)

		changed := sampleMember(3)
		changed.Name = "renamed"
		changed.Age = 31
		n, err := repo.Update(ctx, changed, "id")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		st := mem.LastStatement()
		assert.Equal(t, "UPDATE member SET name = ?, age = ?, active = ?, score = ?, created_at = ?, updated_at = ? WHERE id = ?", st.Query)
		require.Len(t, st.Args, 7)
		assert.Equal(t, "renamed", st.Args[0])
		assert.Equal(t, int64(3), st.Args[6])

		got, err := repo.Find(ctx, "id", int64(3))
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.ID)
		assert.Equal(t, "renamed", got.Name)
		assert.Equal(t, 31, got.Age)
	})

	t.Run("KeyFieldMissing", func(t *testing.T) {
		repo, mem := newMemberRepo(t)
		_, err := repo.Update(ctx, sampleMember(1), "uuid")
		assert.ErrorIs(t, err, ErrKeyFieldMissing)
		assert.Empty(t, mem.Statements())
	})

	t.Run("NoMatchAffectsZeroRows", func(t *testing.T) {
		repo, _ := newMemberRepo(t)
		n, err := repo.Update(ctx, sampleMember(99), "id")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("OnlyKeyColumn", func(t *testing.T) {
		reg := NewRegistry()
		MustRegister[Account](reg, "account")
		engine, _ := newMemEngine(t, "mysql", WithRegistry(reg))
		repo, err := NewRepository[Account](engine)
		require.NoError(t, err)

		_, err = repo.Update(ctx, Account{ID: 1}, "id")
		assert.ErrorIs(t, err, ErrSerialization)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("NoMatchIsZeroNotError", func(t *testing.T) {
		repo, mem := newMemberRepo(t)
		n, err := repo.Delete(ctx, "id", 12345)
		require.NoError(t, err)
		assert.Zero(t, n)

		st := mem.LastStatement()
		assert.Equal(t, "DELETE FROM member WHERE id = ?", st.Query)
		assert.Equal(t, int64(12345), st.Args[0])
	})

	t.Run("KeyValueBoundAsGiven", func(t *testing.T) {
		repo, mem := newMemberRepo(t)
		// A timestamp-looking key is not reclassified.
		_, err := repo.Delete(ctx, "name", "2024-01-01 10:30:00")
		require.NoError(t, err)
		assert.Equal(t, "2024-01-01 10:30:00", mem.LastStatement().Args[0])
	})
}

func TestFind(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		repo, _ := newMemberRepo(t)
		got, err := repo.Find(ctx, "id", 1)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, got)
	})

	t.Run("MultipleRows", func(t *testing.T) {
		repo, _ := newMemberRepo(t)
		a, b := sampleMember(1), sampleMember(2)
		a.Name, b.Name = "twin", "twin"
		_, err := repo.Insert(ctx, a)
		require.NoError(t, err)
		_, err = repo.Insert(ctx, b)
		require.NoError(t, err)

		_, err = repo.Find(ctx, "name", "twin")
		assert.ErrorIs(t, err, ErrMultipleRows)
	})

	t.Run("StatementText", func(t *testing.T) {
		repo, mem := newMemberRepo(t)
		_, _ = repo.Find(ctx, "name", "x")
		assert.Equal(t, "SELECT * FROM member WHERE name = ?", mem.LastStatement().Query)
	})
}

func TestFindAll(t *testing.T) {
	ctx := context.Background()
	repo, mem := newMemberRepo(t)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
	assert.Equal(t, "SELECT * FROM member", mem.LastStatement().Query)

	for i := int64(1); i <= 3; i++ {
		_, err := repo.Insert(ctx, sampleMember(i))
		require.NoError(t, err)
	}
	all, err = repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestQueryAndExists(t *testing.T) {
	ctx := context.Background()
	repo, mem := newMemberRepo(t)
	_, err := repo.Insert(ctx, sampleMember(1))
	require.NoError(t, err)

	t.Run("TimestampParamBoundAsTime", func(t *testing.T) {
		rows, err := repo.Query(ctx, "created_at = ?", Classify("2024-01-01 10:30:00"))
		require.NoError(t, err)
		assert.Len(t, rows, 1)
		assert.IsType(t, time.Time{}, mem.LastStatement().Args[0])
	})

	t.Run("NoMatchIsEmpty", func(t *testing.T) {
		rows, err := repo.Query(ctx, "name = ?", String("nobody"))
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("PlaceholderMismatchIsExecutionError", func(t *testing.T) {
		_, err := repo.Query(ctx, "name = ?")
		assert.ErrorIs(t, err, ErrExecution)
	})

	t.Run("ExistsLifecycle", func(t *testing.T) {
		ok, err := repo.Exists(ctx, "id = ?", Integer(1))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "SELECT EXISTS(SELECT 1 FROM member WHERE id = ?)", mem.LastStatement().Query)

		_, err = repo.Delete(ctx, "id", int64(1))
		require.NoError(t, err)

		ok, err = repo.Exists(ctx, "id = ?", Integer(1))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestQueryAndExists_EmptyWhereMatchesAll(t *testing.T) {
	ctx := context.Background()
	repo, mem := newMemberRepo(t)

	ok, err := repo.Exists(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "SELECT EXISTS(SELECT 1 FROM member)", mem.LastStatement().Query)

	for i := int64(1); i <= 2; i++ {
		_, err = repo.Insert(ctx, sampleMember(i))
		require.NoError(t, err)
	}

	ok, err = repo.Exists(ctx, "")
	require.NoError(t, err)
	assert.True(t, ok)

	rows, err := repo.Query(ctx, "")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "SELECT * FROM member", mem.LastStatement().Query)
}

func TestScenario_LiLei(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()
	MustRegister[scenarioUser](reg, "user")
	engine, mem := newMemEngine(t, "mysql", WithRegistry(reg))
	mem.CreateTable("user", "id", "name", "age")
	repo, err := NewRepository[scenarioUser](engine)
	require.NoError(t, err)

	_, err = repo.Insert(ctx, scenarioUser{UserID: 5, Name: "LiLei", Age: 20})
	require.NoError(t, err)

	users, err := repo.Query(ctx, "name = ?", Classify("LiLei"))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 20, users[0].Age)
	assert.Equal(t, 5, users[0].UserID)

	ok, err := repo.Exists(ctx, "name = ?", Classify("LiLei"))
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := repo.Delete(ctx, "name", "LiLei")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ok, err = repo.Exists(ctx, "name = ?", Classify("LiLei"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	repo, mem := newMemberRepo(t)

	const n = 64
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := repo.Insert(ctx, sampleMember(id)); err != nil {
				errs <- err
			}
		}(int64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("insert failed: %v", err)
	}

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, n)
	assert.Equal(t, n, mem.RowCount("member"))
}

func TestPoolErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()
	MustRegister[member](reg, "member")

	for _, kind := range []error{db.ErrAcquireTimeout, db.ErrInitialization} {
		t.Run(kind.Error(), func(t *testing.T) {
			engine := NewEngine(ormtest.FailingPool{Err: fmt.Errorf("%w: boom", kind)}, WithRegistry(reg))
			repo, err := NewRepository[member](engine)
			require.NoError(t, err)

			_, err = repo.Insert(ctx, sampleMember(1))
			assert.ErrorIs(t, err, kind)
			assert.NotErrorIs(t, err, ErrExecution)

			_, err = repo.FindAll(ctx)
			assert.ErrorIs(t, err, kind)

			_, err = repo.Exists(ctx, "id = ?", Integer(1))
			assert.ErrorIs(t, err, kind)
		})
	}
}

func TestStatementCacheReuse(t *testing.T) {
	ctx := context.Background()
	repo, _ := newMemberRepo(t)
	for i := int64(1); i <= 3; i++ {
		_, err := repo.Insert(ctx, sampleMember(i))
		require.NoError(t, err)
		_, _ = repo.Find(ctx, "id", i)
	}
	assert.Equal(t, 2, repo.engine.stmts.len())
}
