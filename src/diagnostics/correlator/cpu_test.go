package correlator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
)

var windowStart = time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)

func cpuBucket(offsetMinutes int, value float64) models.MetricWindowPoint {
	begin := windowStart.Add(time.Duration(offsetMinutes) * time.Minute)
	return models.MetricWindowPoint{
		BeginTime:  begin,
		EndTime:    begin.Add(time.Minute),
		MetricName: "Host CPU Utilization (%)",
		Value:      value,
	}
}

func TestCPUSaturationMergesAcrossToleratedGap(t *testing.T) {
	opts := models.DefaultOptions()
	points := []models.MetricWindowPoint{
		cpuBucket(0, 90),
		cpuBucket(1, 95),
		cpuBucket(2, 85),
		cpuBucket(3, 92),
	}

	findings := CPUSaturation(windowStart, windowStart.Add(10*time.Minute), points, opts)
	require.Len(t, findings, 1)
	assert.Equal(t, models.CategoryCPU, findings[0].Category)
	assert.Equal(t, models.SeverityWarning, findings[0].Severity)
	assert.Len(t, findings[0].Evidence, 4)
	assert.Contains(t, findings[0].Summary, "3 of 4 buckets")
}

func TestCPUSaturationSplitsBeyondGapTolerance(t *testing.T) {
	opts := models.DefaultOptions()
	opts.CPUMinBuckets = 1
	points := []models.MetricWindowPoint{
		cpuBucket(0, 95),
		cpuBucket(1, 50),
		cpuBucket(2, 60),
		cpuBucket(3, 96),
		cpuBucket(4, 97),
	}

	findings := CPUSaturation(windowStart, windowStart.Add(10*time.Minute), points, opts)
	require.Len(t, findings, 2)
	assert.Len(t, findings[0].Evidence, 1)
	assert.Len(t, findings[1].Evidence, 2)
}

func TestCPUSaturationCriticalOnPeak(t *testing.T) {
	opts := models.DefaultOptions()
	points := []models.MetricWindowPoint{
		cpuBucket(0, 91),
		cpuBucket(1, 99),
	}

	findings := CPUSaturation(windowStart, windowStart.Add(10*time.Minute), points, opts)
	require.Len(t, findings, 1)
	assert.Equal(t, models.SeverityCritical, findings[0].Severity)
}

func TestCPUSaturationRunShorterThanMinimumIgnored(t *testing.T) {
	opts := models.DefaultOptions()
	points := []models.MetricWindowPoint{
		cpuBucket(0, 95),
		cpuBucket(1, 50),
		cpuBucket(2, 40),
	}

	findings := CPUSaturation(windowStart, windowStart.Add(10*time.Minute), points, opts)
	assert.Empty(t, findings)
}

func TestCPUSaturationNoData(t *testing.T) {
	findings := CPUSaturation(windowStart, windowStart.Add(10*time.Minute), nil, models.DefaultOptions())
	require.Len(t, findings, 1)
	assert.Equal(t, models.SeverityInfo, findings[0].Severity)
	require.NotNil(t, findings[0].Metadata)
	assert.True(t, findings[0].Metadata.Incomplete)
}

func TestCPUSaturationIgnoresOtherMetricsAndWindows(t *testing.T) {
	opts := models.DefaultOptions()
	other := cpuBucket(0, 99)
	other.MetricName = "Average Active Sessions"
	outside := cpuBucket(600, 99)

	findings := CPUSaturation(windowStart, windowStart.Add(10*time.Minute), []models.MetricWindowPoint{other, outside}, opts)
	require.Len(t, findings, 1)
	assert.Equal(t, models.SeverityInfo, findings[0].Severity)
}
