package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckAll_NoChecksIsHealthy(t *testing.T) {
	hc := NewHealthChecker(time.Second)

	status := hc.CheckAll(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Empty(t, status.Checks)
	assert.False(t, status.Timestamp.IsZero())
}

func TestCheckAll_ReportsFailure(t *testing.T) {
	hc := NewHealthChecker(time.Second)
	hc.AddCheck("ok", func(context.Context) error { return nil })
	hc.AddCheck("broken", func(context.Context) error { return errors.New("boom") })

	status := hc.CheckAll(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["ok"])
	assert.Equal(t, "boom", status.Checks["broken"])
}

func TestCheckAll_TimesOutSlowCheck(t *testing.T) {
	hc := NewHealthChecker(20 * time.Millisecond)
	hc.AddCheck("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	start := time.Now()
	status := hc.CheckAll(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
