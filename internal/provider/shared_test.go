// internal/provider/shared_test.go
package provider

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

type funcProvider func(ctx context.Context, req schemas.DecisionRequest) (string, error)

func (f funcProvider) Decide(ctx context.Context, req schemas.DecisionRequest) (string, error) {
	return f(ctx, req)
}

func TestSharedBoundsInFlightRequests(t *testing.T) {
	var inFlight, peak atomic.Int64
	inner := funcProvider(func(ctx context.Context, req schemas.DecisionRequest) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return "ACTION: wait", nil
	})

	shared := NewShared(inner, 1000, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := shared.Decide(context.Background(), schemas.DecisionRequest{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestSharedCancelledWhileQueued(t *testing.T) {
	inner := funcProvider(func(ctx context.Context, req schemas.DecisionRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	shared := NewShared(inner, 1000, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := shared.Decide(ctx, schemas.DecisionRequest{})
	require.ErrorIs(t, err, context.Canceled)
}
