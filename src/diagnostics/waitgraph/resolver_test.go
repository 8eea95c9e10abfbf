package waitgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
)

func key(instance, session int) models.SessionKey {
	return models.SessionKey{InstanceID: instance, SessionID: session}
}

func TestResolveSingleChainLeafToRoot(t *testing.T) {
	g := Build([]models.SessionSnapshotRow{
		row(1, 1, i64(1), i64(2)),
		row(1, 2, i64(1), i64(3)),
		row(1, 3, i64(1), i64(4)),
		row(1, 4, nil, nil),
	})

	reports := Resolve(g)
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, key(1, 4), r.RootSession)
	assert.Equal(t, []models.SessionKey{key(1, 1), key(1, 2), key(1, 3), key(1, 4)}, r.Chain)
	assert.Equal(t, 3, r.Depth)
	assert.False(t, r.IsCycle)
	assert.False(t, r.RootUnknown)
	assert.False(t, r.Truncated)
}

func TestResolveCycleReportedOnce(t *testing.T) {
	g := Build([]models.SessionSnapshotRow{
		row(1, 1, i64(1), i64(2)),
		row(1, 2, i64(1), i64(3)),
		row(1, 3, i64(1), i64(1)),
	})

	reports := Resolve(g)
	require.Len(t, reports, 1)

	r := reports[0]
	assert.True(t, r.IsCycle)
	assert.ElementsMatch(t, []models.SessionKey{key(1, 1), key(1, 2), key(1, 3)}, r.Chain)
	assert.Equal(t, key(1, 1), r.RootSession)
}

func TestResolveChainFeedingCycleIsTruncated(t *testing.T) {
	g := Build([]models.SessionSnapshotRow{
		row(1, 1, i64(1), i64(2)),
		row(1, 2, i64(1), i64(3)),
		row(1, 3, i64(1), i64(1)),
		row(1, 4, i64(1), i64(1)),
	})

	reports := Resolve(g)
	require.Len(t, reports, 2)

	var cycles, chains int
	for _, r := range reports {
		if r.IsCycle {
			cycles++
			assert.ElementsMatch(t, []models.SessionKey{key(1, 1), key(1, 2), key(1, 3)}, r.Chain)
		} else {
			chains++
			assert.True(t, r.Truncated)
			assert.Equal(t, []models.SessionKey{key(1, 4), key(1, 1)}, r.Chain)
		}
	}
	assert.Equal(t, 1, cycles)
	assert.Equal(t, 1, chains)
}

func TestResolveEqualDepthOrderedBySessionID(t *testing.T) {
	g := Build([]models.SessionSnapshotRow{
		row(1, 5, i64(1), i64(6)),
		row(1, 6, nil, nil),
		row(1, 3, i64(1), i64(4)),
		row(1, 4, nil, nil),
	})

	reports := Resolve(g)
	require.Len(t, reports, 2)
	assert.Equal(t, key(1, 4), reports[0].RootSession)
	assert.Equal(t, key(1, 6), reports[1].RootSession)
}

func TestResolveDeeperChainsFirst(t *testing.T) {
	g := Build([]models.SessionSnapshotRow{
		row(1, 9, i64(1), i64(8)),
		row(1, 1, i64(1), i64(2)),
		row(1, 2, i64(1), i64(3)),
	})

	reports := Resolve(g)
	require.Len(t, reports, 2)
	assert.Equal(t, 2, reports[0].Depth)
	assert.Equal(t, 1, reports[1].Depth)
}

func TestResolvePlaceholderRootFlagged(t *testing.T) {
	g := Build([]models.SessionSnapshotRow{
		row(1, 10, i64(2), i64(99)),
	})

	reports := Resolve(g)
	require.Len(t, reports, 1)
	assert.Equal(t, key(2, 99), reports[0].RootSession)
	assert.True(t, reports[0].RootUnknown)
	assert.False(t, reports[0].IsCycle)
}

func TestResolveTruncatedBlockerInstanceUnknown(t *testing.T) {
	g := Build([]models.SessionSnapshotRow{
		row(1, 10, nil, i64(20)),
	})

	reports := Resolve(g)
	require.Len(t, reports, 1)
	assert.Equal(t, []models.SessionKey{key(1, 10)}, reports[0].Chain)
	assert.True(t, reports[0].Truncated)
	assert.True(t, reports[0].RootUnknown)
}

func TestResolveEmptyGraph(t *testing.T) {
	reports := Resolve(Build(nil))
	assert.NotNil(t, reports)
	assert.Empty(t, reports)
}
