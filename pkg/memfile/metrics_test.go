package memfile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	_ = c.Write(m)
	return m.GetCounter().GetValue()
}

func TestCountersAdvanceAcrossLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShmRoot = t.TempDir()
	link := filepath.Join(t.TempDir(), "metrics.link")

	createsBefore := counterValue(createsTotal)
	opensBefore := counterValue(opensTotal)

	mf, err := CreateWithConfig(context.Background(), cfg, link, LockMutex, 128)
	require.NoError(t, err)
	att, err := OpenWithConfig(context.Background(), cfg, link)
	require.NoError(t, err)

	assert.Equal(t, createsBefore+1, counterValue(createsTotal))
	assert.Equal(t, opensBefore+1, counterValue(opensTotal))

	acqBefore := counterValue(lockAcquisitions.WithLabelValues("mutex", "write"))
	g, err := WriteLock[byte](mf)
	require.NoError(t, err)
	g.Release()
	assert.Equal(t, acqBefore+1, counterValue(lockAcquisitions.WithLabelValues("mutex", "write")))

	require.NoError(t, att.Close())
	require.NoError(t, mf.Close())
}
