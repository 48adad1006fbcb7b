package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/school-portal-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	handler := NewMetricsHandler(service.NewMetricsService(), map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
	})

	c, rec := jsonContext(http.MethodGet, "/ready", "")
	handler.Ready(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)
}

func TestMetricsHandlerReadyReportsFailure(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	c, rec := jsonContext(http.MethodGet, "/ready", "")
	handler.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordSubmission(service.OutcomeSuccess)
	handler := NewMetricsHandler(metrics, nil)

	c, rec := jsonContext(http.MethodGet, "/metrics", "")
	handler.Prometheus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `school_submissions_total{outcome="success"} 1`)
}

func TestMetricsHandlerWithoutServiceIsUnavailable(t *testing.T) {
	handler := NewMetricsHandler(nil, nil)

	c, _ := jsonContext(http.MethodGet, "/metrics", "")
	handler.Prometheus(c)

	assert.Equal(t, http.StatusServiceUnavailable, c.Writer.Status())
}
