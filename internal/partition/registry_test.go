package partition

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	splerrors "github.com/arkilian/splitter/internal/errors"
	"github.com/arkilian/splitter/pkg/types"
)

func newTestRegistry(t *testing.T, strategy DedupStrategy) *Registry {
	t.Helper()
	router, err := NewRouter(DefaultRouterConfig())
	require.NoError(t, err)
	return NewRegistry(t.TempDir(), router, optsFor(strategy))
}

func TestRegistry_AcquireReturnsSameSink(t *testing.T) {
	reg := newTestRegistry(t, DedupScan)
	defer reg.CloseAll()

	s1, err := reg.Acquire('S')
	require.NoError(t, err)
	s2, err := reg.Acquire('S')
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, filepath.Join(reg.Dir(), "S.txt"), s1.Path())

	j, err := reg.Acquire('J')
	require.NoError(t, err)
	assert.NotSame(t, s1, j)
}

func TestRegistry_ConcurrentFirstAcquire(t *testing.T) {
	reg := newTestRegistry(t, DedupScan)
	defer reg.CloseAll()

	const goroutines = 32
	sinks := make([]*Sink, goroutines)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			s, err := reg.Acquire('N')
			if err == nil {
				sinks[idx] = s
			}
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		require.NotNil(t, sinks[i])
		assert.Same(t, sinks[0], sinks[i])
	}
	assert.Equal(t, 1, reg.Stats().ActiveKeys)
}

func TestRegistry_ConcurrentOffersSameKey(t *testing.T) {
	for _, strategy := range allStrategies {
		t.Run(string(strategy), func(t *testing.T) {
			reg := newTestRegistry(t, strategy)

			const (
				workers  = 8
				distinct = 50
			)

			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					// Every worker offers the same records; only one copy may land.
					for i := 0; i < distinct; i++ {
						s, err := reg.Acquire('S')
						if err != nil {
							t.Error(err)
							return
						}
						rec := types.Record{Surname: "Smith", Name: "N", Patronymic: "P", Phone: fmt.Sprint(i)}
						if _, err := s.Offer(rec); err != nil {
							t.Error(err)
							return
						}
					}
				}()
			}
			wg.Wait()
			require.NoError(t, reg.CloseAll())

			lines := readLines(t, filepath.Join(reg.Dir(), "S.txt"))
			assert.Len(t, lines, distinct)

			stats := reg.Stats()
			assert.Equal(t, int64(distinct), stats.TotalAppended)
			assert.Equal(t, int64(distinct*(workers-1)), stats.TotalDuplicates)
		})
	}
}

func TestRegistry_InvalidKeyFailsWithoutAffectingOthers(t *testing.T) {
	reg := newTestRegistry(t, DedupScan)
	defer reg.CloseAll()

	_, err := reg.Acquire('/')
	require.Error(t, err)
	assert.Equal(t, splerrors.CodeInvalidKey, splerrors.GetCode(err))

	_, err2 := reg.Acquire('/')
	assert.Equal(t, err.Error(), err2.Error())

	s, err := reg.Acquire('S')
	require.NoError(t, err)
	ok, err := s.Offer(types.Record{Surname: "Smith", Phone: "1"})
	require.NoError(t, err)
	assert.True(t, ok)

	stats := reg.Stats()
	assert.Equal(t, 1, stats.FailedKeys)
	assert.Equal(t, 1, stats.ActiveKeys)
}

func TestRegistry_OpenFailureIsPerKey(t *testing.T) {
	reg := newTestRegistry(t, DedupScan)
	defer reg.CloseAll()

	// A directory squatting on the partition path makes the open fail.
	require.NoError(t, os.Mkdir(filepath.Join(reg.Dir(), "B.txt"), 0755))

	_, err := reg.Acquire('B')
	require.Error(t, err)
	assert.Equal(t, splerrors.CodeSinkOpenFailed, splerrors.GetCode(err))
	assert.False(t, splerrors.IsFatal(err))

	_, err = reg.Acquire('A')
	assert.NoError(t, err)
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := newTestRegistry(t, DedupScan)

	s, err := reg.Acquire('S')
	require.NoError(t, err)
	_, err = reg.Acquire('J')
	require.NoError(t, err)

	require.NoError(t, reg.CloseAll())
	require.NoError(t, reg.CloseAll())

	assert.Equal(t, SinkClosed, s.State())

	_, err = reg.Acquire('S')
	assert.ErrorIs(t, err, ErrRegistryClosed)

	stats := reg.Stats()
	assert.Equal(t, 2, stats.ActiveKeys)
	require.Len(t, stats.Sinks, 2)
	assert.Equal(t, types.Key('J'), stats.Sinks[0].Key)
	assert.Equal(t, types.Key('S'), stats.Sinks[1].Key)
}
