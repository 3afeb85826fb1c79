package placement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"online-admission/models"
)

func TestMapperResolvesProgramsByExactName(t *testing.T) {
	m := NewMapper(ProgramNames{"P2": "Science", "P1": "Science", "P3": "Arts"})

	s := m.Map(Row{IndexNumber: "1", Program: "Science", Status: " Boarding ", Aggregate: "14.5"})
	require.NotNil(t, s.ProgramRef)
	assert.Equal(t, "P1", *s.ProgramRef, "lowest id wins a name tie")
	assert.Equal(t, "boarding", s.Status)
	require.NotNil(t, s.Aggregate)
	assert.Equal(t, 14.5, *s.Aggregate)

	s = m.Map(Row{IndexNumber: "2", Program: "science", Aggregate: "n/a"})
	assert.Nil(t, s.ProgramRef, "matching is case sensitive")
	assert.Nil(t, s.Aggregate)
}

func TestMapRowLeavesUnknownProgramUnmapped(t *testing.T) {
	s := MapRow(Row{IndexNumber: "9", Program: "Visual Arts"}, ProgramNames{"P1": "General Arts"})
	assert.Nil(t, s.ProgramRef)
	assert.Equal(t, "9", s.IndexNumber)
	assert.False(t, s.Completed)
	assert.False(t, s.HasPaid)
}

func TestFilterDuplicates(t *testing.T) {
	drafts := []models.Student{{IndexNumber: "a"}, {IndexNumber: "b"}, {IndexNumber: "c"}, {IndexNumber: "b"}}
	existing := map[string]struct{}{"a": {}}

	got := FilterDuplicates(drafts, existing)

	assert.Equal(t, []string{"b", "c"}, IndexNumbers(got))
	for _, d := range got {
		_, dup := existing[d.IndexNumber]
		assert.False(t, dup)
	}
}

func TestFilterDuplicatesKeepsBlankIndexNumbers(t *testing.T) {
	drafts := []models.Student{{IndexNumber: ""}, {IndexNumber: "a"}, {IndexNumber: ""}, {IndexNumber: ""}}

	got := FilterDuplicates(drafts, map[string]struct{}{"": {}})

	assert.Equal(t, []string{"", "a", "", ""}, IndexNumbers(got))
}

func TestAllocate(t *testing.T) {
	drafts := []models.Student{{IndexNumber: "x"}, {IndexNumber: "y"}, {IndexNumber: "z"}}

	got := Allocate(drafts, 0, "2024")
	assert.Equal(t, 1, got[0].AdmissionNumber)
	assert.Equal(t, 3, got[2].AdmissionNumber)

	got = Allocate(drafts, 50, "2024")
	for i, s := range got {
		assert.Equal(t, 51+i, s.AdmissionNumber)
		assert.Equal(t, "2024", s.Year)
	}
	assert.Zero(t, drafts[0].AdmissionNumber, "input is not modified")
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	k := NewKeyedMutex()
	ctx := context.Background()

	unlock, err := k.Lock(ctx, "school-1")
	require.NoError(t, err)

	other, err := k.Lock(ctx, "school-2")
	require.NoError(t, err, "different keys do not block")
	other()

	timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = k.Lock(timeout, "school-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	again, err := k.Lock(ctx, "school-1")
	require.NoError(t, err)
	again()
	assert.Empty(t, k.locks)
}
