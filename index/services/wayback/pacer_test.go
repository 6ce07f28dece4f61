package wayback

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerFirstRequestIsImmediate(t *testing.T) {
	mock := clock.NewMock()
	pacer := NewPacer(mock, 10*time.Second)
	require.NoError(t, pacer.Wait(context.Background()))
}

func TestPacerReservesNextSlot(t *testing.T) {
	mock := clock.NewMock()
	pacer := NewPacer(mock, 10*time.Second)
	require.NoError(t, pacer.Wait(context.Background()))
	assert.Equal(t, mock.Now().Add(10*time.Second), pacer.next)
}

func TestPacerBlocksUntilTheSlotOpens(t *testing.T) {
	mock := clock.NewMock()
	pacer := NewPacer(mock, 10*time.Second)
	require.NoError(t, pacer.Wait(context.Background()))

	done := make(chan error, 1)
	go func() {
		done <- pacer.Wait(context.Background())
	}()

	deadline := time.Now().Add(10 * time.Second)
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			return
		default:
		}
		if time.Now().After(deadline) {
			t.Fatal("pacer never released the second waiter")
		}
		mock.Add(time.Second)
		time.Sleep(time.Millisecond)
	}
}

func TestPacerWaitHonorsContextCancellation(t *testing.T) {
	mock := clock.NewMock()
	pacer := NewPacer(mock, 10*time.Second)
	require.NoError(t, pacer.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pacer.Wait(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestPacerEnforcesMinimumInterval(t *testing.T) {
	pacer := NewPacer(clock.New(), 50*time.Millisecond)
	start := time.Now()
	require.NoError(t, pacer.Wait(context.Background()))
	require.NoError(t, pacer.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}
