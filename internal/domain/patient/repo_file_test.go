package patient

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLock is a FileLock whose outcome is fixed by the test.
type stubLock struct {
	mu      sync.Mutex
	lockErr error
	deny    bool
	locks   int
	unlocks int
}

func (l *stubLock) TryLockContext(_ context.Context, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locks++
	if l.lockErr != nil {
		return false, l.lockErr
	}
	return !l.deny, nil
}

func (l *stubLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unlocks++
	return nil
}

func TestFileRepo_MissingFileLoadsEmpty(t *testing.T) {
	repo := NewPatientRepoFile(filepath.Join(t.TempDir(), "patients.json"))

	c, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestFileRepo_EmptyFileLoadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0644))

	c, err := NewPatientRepoFile(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestFileRepo_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "patients.json")
	repo := NewPatientRepoFile(path)

	c := NewCollection()
	c.Put(&Patient{ID: "P002", Name: "Asha", City: "Goa", Gender: GenderOthers, Age: 9, Height: 1.3, Weight: 30})
	c.Put(validPatient())
	require.NoError(t, repo.Save(ctx, c))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"P002", "P001"}, loaded.IDs())
	got, ok := loaded.Get("P001")
	require.True(t, ok)
	assert.Equal(t, validPatient(), got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, errors.Is(err, os.ErrNotExist), "temp file must not be left behind")
}

func TestFileRepo_PersistedLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	c := NewCollection()
	c.Put(validPatient())
	require.NoError(t, NewPatientRepoFile(path).Save(context.Background(), c))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, `"P001": {`)
	assert.Contains(t, s, `"name": "John"`)
	assert.NotContains(t, s, `"id"`)
	assert.NotContains(t, s, `"bmi"`)
	assert.NotContains(t, s, `"verdict"`)
}

func TestFileRepo_ReadsExistingDocumentInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	require.NoError(t, os.WriteFile(path, []byte(orderedDoc), 0644))

	c, err := NewPatientRepoFile(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"P003", "P001", "P002"}, c.IDs())
}

func TestFileRepo_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"P001": `), 0644))

	_, err := NewPatientRepoFile(path).Load(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parse"), "unexpected error: %v", err)
}

func TestFileRepo_SaveIntoMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "patients.json")
	lock := &stubLock{}
	repo := NewPatientRepoFile(path, WithFileLock(lock))

	err := repo.Save(context.Background(), NewCollection())
	require.Error(t, err)
	assert.Equal(t, 1, lock.unlocks, "lock must be released after a failed write")
}

func TestFileRepo_LockFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")

	repo := NewPatientRepoFile(path, WithFileLock(&stubLock{lockErr: errors.New("boom")}))
	_, err := repo.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	repo = NewPatientRepoFile(path, WithFileLock(&stubLock{deny: true}))
	err = repo.Save(context.Background(), NewCollection())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "nothing may be written without the lock")
}

func TestFileRepo_ConcurrentSavesStayReadable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "patients.json")
	repo := NewPatientRepoFile(path)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := NewCollection()
			p := validPatient()
			p.Age = i + 1
			c.Put(p)
			assert.NoError(t, repo.Save(ctx, c))
		}(i)
	}
	wg.Wait()

	c, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}
