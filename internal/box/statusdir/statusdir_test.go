package statusdir

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/linyaps-box/box/internal/box/boxerr"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir, err := Open(t.TempDir())
	assert.NilError(t, err)

	code := 0
	want := Record{
		ID:          "c1",
		Phase:       PhaseRunning,
		Pid:         4242,
		Bundle:      "/bundles/c1",
		Created:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Annotations: map[string]string{"org.example.foo": "bar"},
		ExitCode:    &code,
	}
	assert.NilError(t, dir.Save(want))

	got, err := dir.Load("c1")
	assert.NilError(t, err)
	assert.DeepEqual(t, got, want)
}

func TestLoadMissingIsStateError(t *testing.T) {
	dir, err := Open(t.TempDir())
	assert.NilError(t, err)

	_, err = dir.Load("nope")
	assert.Assert(t, err != nil)
	kind, ok := boxerr.KindOf(err)
	assert.Assert(t, ok)
	assert.Equal(t, kind, boxerr.State)
}

func TestListReturnsSavedIDs(t *testing.T) {
	dir, err := Open(t.TempDir())
	assert.NilError(t, err)

	assert.NilError(t, dir.Save(Record{ID: "a", Phase: PhaseCreated}))
	assert.NilError(t, dir.Save(Record{ID: "b", Phase: PhaseCreated}))

	ids, err := dir.List()
	assert.NilError(t, err)
	assert.Equal(t, len(ids), 2)
}

func TestRemoveIsIdempotent(t *testing.T) {
	dir, err := Open(t.TempDir())
	assert.NilError(t, err)

	assert.NilError(t, dir.Save(Record{ID: "c1", Phase: PhaseStopped}))
	assert.NilError(t, dir.Remove("c1"))
	assert.NilError(t, dir.Remove("c1"))

	_, err = dir.Load("c1")
	assert.Assert(t, err != nil)
}

func TestWithLockSerializesAccess(t *testing.T) {
	dir, err := Open(t.TempDir())
	assert.NilError(t, err)

	order := make(chan int, 2)
	started := make(chan struct{})
	go func() {
		dir.WithLock("c1", func() error {
			close(started)
			time.Sleep(20 * time.Millisecond)
			order <- 1
			return nil
		})
	}()
	<-started
	assert.NilError(t, dir.WithLock("c1", func() error {
		order <- 2
		return nil
	}))
	assert.Equal(t, <-order, 1)
	assert.Equal(t, <-order, 2)
}
