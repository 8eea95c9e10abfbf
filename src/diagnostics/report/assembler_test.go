package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
)

func finding(category models.Category, severity models.Severity, evidence int) models.DiagnosticFinding {
	e := make([]any, evidence)
	return models.DiagnosticFinding{Category: category, Severity: severity, Summary: "x", Evidence: e}
}

func TestAssembleEmptyInputsYieldEmptySequence(t *testing.T) {
	merged := Assemble(nil, nil, nil)
	assert.NotNil(t, merged)
	assert.Empty(t, merged)
}

func TestAssembleOrdersBySeverityThenCategoryThenEvidence(t *testing.T) {
	merged := Assemble(
		[]models.DiagnosticFinding{finding(models.CategoryFullScan, models.SeverityWarning, 1)},
		[]models.DiagnosticFinding{finding(models.CategoryCPU, models.SeverityCritical, 1)},
		[]models.DiagnosticFinding{finding(models.CategoryBlocking, models.SeverityCritical, 1)},
		[]models.DiagnosticFinding{
			finding(models.CategoryLongOp, models.SeverityWarning, 3),
			finding(models.CategoryLongOp, models.SeverityWarning, 5),
		},
		[]models.DiagnosticFinding{finding(models.CategoryParallelism, models.SeverityInfo, 1)},
	)

	require.Len(t, merged, 6)
	assert.Equal(t, models.CategoryBlocking, merged[0].Category)
	assert.Equal(t, models.CategoryCPU, merged[1].Category)
	assert.Equal(t, models.CategoryLongOp, merged[2].Category)
	assert.Len(t, merged[2].Evidence, 5)
	assert.Len(t, merged[3].Evidence, 3)
	assert.Equal(t, models.CategoryFullScan, merged[4].Category)
	assert.Equal(t, models.SeverityInfo, merged[5].Severity)
}

func TestBlockingFindingsSeverity(t *testing.T) {
	opts := models.DefaultOptions()
	reports := []models.BlockerReport{
		{
			RootSession: models.SessionKey{InstanceID: 1, SessionID: 3},
			Chain: []models.SessionKey{
				{InstanceID: 1, SessionID: 1},
				{InstanceID: 1, SessionID: 2},
				{InstanceID: 1, SessionID: 3},
			},
			IsCycle: true,
		},
		{
			RootSession: models.SessionKey{InstanceID: 1, SessionID: 9},
			Chain: []models.SessionKey{
				{InstanceID: 1, SessionID: 8},
				{InstanceID: 1, SessionID: 9},
			},
			Depth: 1,
		},
	}

	findings := BlockingFindings(reports, nil, 0, opts)
	require.Len(t, findings, 2)
	assert.Equal(t, models.SeverityCritical, findings[0].Severity)
	assert.Contains(t, findings[0].Summary, "deadlock candidate")
	assert.Equal(t, models.SeverityWarning, findings[1].Severity)
}

func TestBlockingFindingsDeepChainCritical(t *testing.T) {
	opts := models.DefaultOptions()
	chain := make([]models.SessionKey, 0, 4)
	for sid := 1; sid <= 4; sid++ {
		chain = append(chain, models.SessionKey{InstanceID: 1, SessionID: sid})
	}

	findings := BlockingFindings([]models.BlockerReport{{
		RootSession: chain[3],
		Chain:       chain,
		Depth:       3,
	}}, nil, 0, opts)

	require.Len(t, findings, 1)
	assert.Equal(t, models.SeverityCritical, findings[0].Severity)
}

func TestBlockingFindingsSurfaceIncompleteData(t *testing.T) {
	opts := models.DefaultOptions()
	rows := []models.SessionSnapshotRow{
		{InstanceID: 1, SessionID: 8, WaitEvent: "enq: TX - row lock contention"},
	}

	findings := BlockingFindings([]models.BlockerReport{{
		RootSession: models.SessionKey{InstanceID: 2, SessionID: 99},
		Chain: []models.SessionKey{
			{InstanceID: 1, SessionID: 8},
			{InstanceID: 2, SessionID: 99},
		},
		Depth:       1,
		RootUnknown: true,
	}}, rows, 2, opts)

	require.Len(t, findings, 1)
	require.NotNil(t, findings[0].Metadata)
	assert.True(t, findings[0].Metadata.Incomplete)
	assert.Equal(t, 2, findings[0].Metadata.DroppedRows)
	// Report plus the one resolvable snapshot row.
	assert.Len(t, findings[0].Evidence, 2)
}
