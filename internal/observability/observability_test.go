package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.TextFormatter{})
	})

	require.NoError(t, ConfigureLogging("trace", "json"))
	assert.Equal(t, logrus.TraceLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	require.NoError(t, ConfigureLogging("error", "text"))
	assert.Equal(t, logrus.ErrorLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)

	assert.Error(t, ConfigureLogging("loud", "text"))
	assert.Error(t, ConfigureLogging("info", "yaml"))
}

func TestMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()
	m.Decodes.WithLabelValues("RW", "ok").Inc()
	m.Decodes.WithLabelValues("RW", "ok").Inc()
	m.Cache.WithLabelValues("miss").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decodes.WithLabelValues("RW", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cache.WithLabelValues("miss")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CatalogErrors))
}
