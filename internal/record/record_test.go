package record

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.dat")
	s, err := Open(path, []int{8, 16})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndRead(t *testing.T) {
	s := openTestStore(t)

	rid, err := s.Append([]string{"1", "alice"})
	require.NoError(t, err)
	require.Equal(t, int64(0), rid)

	fields, live, err := s.Read(rid)
	require.NoError(t, err)
	require.True(t, live)
	require.Equal(t, []string{"1", "alice"}, fields)
}

func TestTombstoneHidesRecord(t *testing.T) {
	s := openTestStore(t)
	rid, err := s.Append([]string{"2", "bob"})
	require.NoError(t, err)

	require.NoError(t, s.Tombstone(rid))

	_, live, err := s.Read(rid)
	require.NoError(t, err)
	require.False(t, live)
}

func TestScanSkipsTombstones(t *testing.T) {
	s := openTestStore(t)
	r1, _ := s.Append([]string{"1", "a"})
	_, _ = s.Append([]string{"2", "b"})
	require.NoError(t, s.Tombstone(r1))

	var seen []int64
	require.NoError(t, s.Scan(func(r Row) bool {
		seen = append(seen, r.Rid)
		return true
	}))
	require.Equal(t, []int64{1}, seen)
}

func TestAppendRejectsOversizedField(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Append([]string{"toolongforthewidth", "x"})
	require.Error(t, err)
}

func TestReopenPreservesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.dat")
	s1, err := Open(path, []int{8})
	require.NoError(t, err)
	_, err = s1.Append([]string{"hello"})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path, []int{8})
	require.NoError(t, err)
	defer s2.Close()

	fields, live, err := s2.Read(0)
	require.NoError(t, err)
	require.True(t, live)
	require.Equal(t, []string{"hello"}, fields)
}
