package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterTwiceOnSameRegistryFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, New("reminders").Register(reg))
	assert.Error(t, New("reminders").Register(reg))
}

func TestCollectorsRecord(t *testing.T) {
	m := New("test")
	m.SchedulerDeliveries.WithLabelValues("success").Inc()
	m.SchedulerDeliveries.WithLabelValues("success").Inc()
	m.SchedulerJobs.WithLabelValues("pending").Set(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SchedulerDeliveries.WithLabelValues("success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SchedulerJobs.WithLabelValues("pending")))
}
