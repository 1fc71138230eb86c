package pkg

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type entry struct {
	Index  int
	Nested bool
	Tags   []string
}

func TestJournal(t *testing.T) {
	t.Run("CreateJournal makes parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "tests.gob")

		journal, err := CreateJournal[int](path)
		require.NoError(t, err)
		require.Equal(t, path, journal.Path())
		require.NoError(t, journal.Close())
		require.FileExists(t, path)
	})

	t.Run("Append and Get", func(t *testing.T) {
		journal, err := CreateJournal[string](filepath.Join(t.TempDir(), "j.gob"))
		require.NoError(t, err)

		defer journal.Close()

		require.NoError(t, journal.Append("first"))
		require.NoError(t, journal.Append("second"))

		got, err := journal.Get(1)
		require.NoError(t, err)
		require.Equal(t, "second", got)

		_, err = journal.Get(5)
		require.Error(t, err)
	})

	t.Run("AppendBatch and Len", func(t *testing.T) {
		journal, err := CreateJournal[int](filepath.Join(t.TempDir(), "j.gob"))
		require.NoError(t, err)

		defer journal.Close()

		require.Equal(t, uint64(0), journal.Len())
		require.NoError(t, journal.AppendBatch([]int{1, 2, 3}))
		require.Equal(t, uint64(3), journal.Len())
	})

	t.Run("Range does not leak fields between items", func(t *testing.T) {
		journal, err := CreateJournal[entry](filepath.Join(t.TempDir(), "j.gob"))
		require.NoError(t, err)

		defer journal.Close()

		require.NoError(t, journal.Append(entry{Index: 1, Nested: true, Tags: []string{"a"}}))
		require.NoError(t, journal.Append(entry{Index: 2}))

		var got []entry

		require.NoError(t, journal.Range(func(_ uint64, item entry) error {
			got = append(got, item)
			return nil
		}))

		require.Equal(t, []entry{{Index: 1, Nested: true, Tags: []string{"a"}}, {Index: 2}}, got)
	})

	t.Run("Range stops on callback error", func(t *testing.T) {
		journal, err := CreateJournal[int](filepath.Join(t.TempDir(), "j.gob"))
		require.NoError(t, err)

		defer journal.Close()

		require.NoError(t, journal.AppendBatch([]int{1, 2, 3}))

		stop := errors.New("stop")
		calls := 0

		err = journal.Range(func(_ uint64, _ int) error {
			calls++
			return stop
		})
		require.ErrorIs(t, err, stop)
		require.Equal(t, 1, calls)
	})

	t.Run("ReadJournal after Close", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "j.gob")

		journal, err := CreateJournal[entry](path)
		require.NoError(t, err)
		require.NoError(t, journal.Append(entry{Index: 7}))
		require.NoError(t, journal.Close())
		require.Error(t, journal.Append(entry{Index: 8}))

		items, err := ReadJournal[entry](path)
		require.NoError(t, err)
		require.Equal(t, []entry{{Index: 7}}, items)
	})

	t.Run("ReadJournal missing file", func(t *testing.T) {
		_, err := ReadJournal[int](filepath.Join(t.TempDir(), "missing.gob"))
		require.Error(t, err)
	})
}
