package student_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shiksha/core/student"
	"github.com/trezcool/shiksha/storage/database/inmem"
	testutil "github.com/trezcool/shiksha/tests"
)

var startDate = time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T) (student.Service, student.Repository, *testutil.EmailServiceMock) {
	t.Helper()
	db := inmem.NewDB()
	repo := inmem.NewStudentRepository(db)
	mailSvc := &testutil.EmailServiceMock{}
	svc := student.NewService(repo, mailSvc, testutil.NopLogger{}, testutil.NewConfig())
	return svc, repo, mailSvc
}

func createBatch(t *testing.T, repo student.Repository, subject string) student.Batch {
	t.Helper()
	batch, err := repo.CreateBatch(context.Background(), student.Batch{
		Name:      subject + " 2026",
		Subject:   subject,
		StartDate: startDate,
		FeeAmount: 1200,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return batch
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("allocates sequential IDs", func(t *testing.T) {
		svc, repo, _ := setup(t)
		batch := createBatch(t, repo, "Mathematics")

		for i := 1; i <= 3; i++ {
			stu, created, err := svc.Register(ctx, student.NewStudent{
				BatchID:       batch.ID,
				Name:          fmt.Sprintf("Student %d", i),
				ParentContact: fmt.Sprintf("98765%05d", i),
			})
			require.NoError(t, err)
			assert.True(t, created)
			assert.Equal(t, fmt.Sprintf("MTH26%03d", i), stu.HumanID)
		}
	})

	t.Run("duplicate submission returns existing row", func(t *testing.T) {
		svc, repo, _ := setup(t)
		batch := createBatch(t, repo, "Physics")

		ns := student.NewStudent{
			BatchID:       batch.ID,
			Name:          "Asha Rao",
			ParentContact: "9876500001",
		}
		first, created, err := svc.Register(ctx, ns)
		require.NoError(t, err)
		require.True(t, created)

		again, created, err := svc.Register(ctx, ns)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, first.HumanID, again.HumanID)

		// the duplicate must not have burned a sequence value
		next, created, err := svc.Register(ctx, student.NewStudent{
			BatchID:       batch.ID,
			Name:          "Vikram Shah",
			ParentContact: "9876500002",
		})
		require.NoError(t, err)
		require.True(t, created)
		assert.Equal(t, "PHY26002", next.HumanID)
	})

	t.Run("unknown batch", func(t *testing.T) {
		svc, _, _ := setup(t)
		_, _, err := svc.Register(ctx, student.NewStudent{
			BatchID:       "nope",
			Name:          "Asha Rao",
			ParentContact: "9876500001",
		})
		assert.Equal(t, student.ErrBatchNotFound, err)
	})

	t.Run("redraws on taken ID", func(t *testing.T) {
		svc, repo, _ := setup(t)
		batch := createBatch(t, repo, "Chemistry")

		// a pre-existing row already holds the ID the counter would produce
		testutil.CreateStudent(t, repo, batch.ID, "CHM26001", "Old Row", "9876500000")

		stu, created, err := svc.Register(ctx, student.NewStudent{
			BatchID:       batch.ID,
			Name:          "Asha Rao",
			ParentContact: "9876500001",
		})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "CHM26002", stu.HumanID)
	})

	t.Run("allocation exhausted", func(t *testing.T) {
		svc, repo, _ := setup(t)
		batch := createBatch(t, repo, "Biology")

		// occupy every ID the 15-attempt loop can draw
		for i := 1; i <= 15; i++ {
			testutil.CreateStudent(t, repo, batch.ID, fmt.Sprintf("BIO26%03d", i), fmt.Sprintf("Old Row %d", i), fmt.Sprintf("98765%05d", i))
		}

		_, _, err := svc.Register(ctx, student.NewStudent{
			BatchID:       batch.ID,
			Name:          "Asha Rao",
			ParentContact: "9876599999",
		})
		assert.Equal(t, student.ErrAllocationExhausted, err)
	})

	t.Run("sends welcome mail when parent email is set", func(t *testing.T) {
		svc, repo, mailSvc := setup(t)
		batch := createBatch(t, repo, "English")

		_, _, err := svc.Register(ctx, student.NewStudent{
			BatchID:       batch.ID,
			Name:          "Asha Rao",
			ParentContact: "9876500001",
			ParentEmail:   "parent@test.cd",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, mailSvc.SentCount())

		_, _, err = svc.Register(ctx, student.NewStudent{
			BatchID:       batch.ID,
			Name:          "Vikram Shah",
			ParentContact: "9876500002",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, mailSvc.SentCount(), "no mail without a parent email")
	})
}

func TestService_Register_concurrent(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	batch := createBatch(t, repo, "Mathematics")

	const n = 50
	ids := make(chan string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			stu, created, err := svc.Register(ctx, student.NewStudent{
				BatchID:       batch.ID,
				Name:          fmt.Sprintf("Student %d", i),
				ParentContact: fmt.Sprintf("98765%05d", i),
			})
			if err != nil {
				t.Errorf("Register() failed: %v", err)
				return
			}
			if !created {
				t.Errorf("Register() created = false for distinct student %d", i)
				return
			}
			ids <- stu.HumanID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, n)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID allocated: %s", id)
		}
		seen[id] = true
	}
	require.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		assert.True(t, seen[fmt.Sprintf("MTH26%03d", i)], "missing sequence value %d", i)
	}
}

func TestService_AssignHumanID(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns to a row missing one", func(t *testing.T) {
		svc, repo, _ := setup(t)
		batch := createBatch(t, repo, "Mathematics")
		stu := testutil.CreateStudent(t, repo, batch.ID, "", "Asha Rao", "9876500001")

		assigned, err := svc.AssignHumanID(ctx, stu.ID)
		require.NoError(t, err)
		assert.Equal(t, "MTH26001", assigned.HumanID)
	})

	t.Run("no-op for a row already holding one", func(t *testing.T) {
		svc, repo, _ := setup(t)
		batch := createBatch(t, repo, "Mathematics")
		stu := testutil.CreateStudent(t, repo, batch.ID, "MTH26007", "Asha Rao", "9876500001")

		assigned, err := svc.AssignHumanID(ctx, stu.ID)
		require.NoError(t, err)
		assert.Equal(t, "MTH26007", assigned.HumanID)

		// counter untouched
		fresh := testutil.CreateStudent(t, repo, batch.ID, "", "Vikram Shah", "9876500002")
		assigned, err = svc.AssignHumanID(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, "MTH26001", assigned.HumanID)
	})

	t.Run("batchless row gets a generic ID", func(t *testing.T) {
		svc, repo, _ := setup(t)
		stu := testutil.CreateStudent(t, repo, "", "", "Asha Rao", "9876500001")

		saved := student.NowFunc
		student.NowFunc = func() time.Time { return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC) }
		defer func() { student.NowFunc = saved }()

		assigned, err := svc.AssignHumanID(ctx, stu.ID)
		require.NoError(t, err)
		assert.Equal(t, "GEN26001", assigned.HumanID)
	})

	t.Run("unknown student", func(t *testing.T) {
		svc, _, _ := setup(t)
		_, err := svc.AssignHumanID(ctx, "nope")
		assert.Equal(t, student.ErrNotFound, err)
	})
}

func TestService_MissingHumanID(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	batch := createBatch(t, repo, "Mathematics")

	testutil.CreateStudent(t, repo, batch.ID, "MTH26001", "Asha Rao", "9876500001")
	missing := testutil.CreateStudent(t, repo, batch.ID, "", "Vikram Shah", "9876500002")

	students, err := svc.MissingHumanID(ctx)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, missing.ID, students[0].ID)
}
