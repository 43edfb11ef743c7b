package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/storefront/storefront/internal/monitoring"
)

func TestHealthManagerAggregatesStatus(t *testing.T) {
	up := monitoring.NewCheck("up", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	})
	degraded := monitoring.NewCheck("slow", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded}
	})
	down := monitoring.NewCheck("broken", nil)

	report := monitoring.NewHealthManager(up).EvaluateReadiness(context.Background())
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusUp, report.Status)
	require.Equal(t, "up", report.Checks[0].Component)

	report = monitoring.NewHealthManager(up, degraded).EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)

	report = monitoring.NewHealthManager(down, degraded).EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Equal(t, "probe not implemented", report.Checks[0].Details)
}

func TestHealthManagerRecoversPanickingProbe(t *testing.T) {
	mgr := monitoring.NewHealthManager(monitoring.NewCheck("panics", func(context.Context) monitoring.ProbeResult {
		panic("probe exploded")
	}))

	report := mgr.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, "panics", report.Checks[0].Component)
	require.Equal(t, "probe exploded", report.Checks[0].Details)
}

func TestLivenessWithoutProbesIsUp(t *testing.T) {
	report := monitoring.NewHealthManager().EvaluateLiveness(context.Background())
	require.True(t, report.Success)
	require.Empty(t, report.Checks)
}

func TestResultFromError(t *testing.T) {
	require.Equal(t, monitoring.StatusUp, monitoring.ResultFromError("db", nil, time.Millisecond).Status)
	require.Equal(t, monitoring.StatusDegraded, monitoring.ResultFromError("db", context.DeadlineExceeded, 0).Status)

	result := monitoring.ResultFromError("db", errors.New("refused"), -time.Second)
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Equal(t, "refused", result.Details)
	require.Zero(t, result.Duration)
}
