package sweep_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
	"github.com/MrJamesThe3rd/bnpl/internal/sweep"
)

type fakeSweeper struct {
	calls  atomic.Int32
	report creditline.SweepReport
	err    error
	ran    chan struct{}
}

func (f *fakeSweeper) RunAgingSweepAll(ctx context.Context) (creditline.SweepReport, error) {
	f.calls.Add(1)

	if f.ran != nil {
		select {
		case f.ran <- struct{}{}:
		default:
		}
	}

	return f.report, f.err
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := sweep.New(&fakeSweeper{}, "every now and then", time.Minute)
	assert.Error(t, err)
}

func TestScheduler_RunNow(t *testing.T) {
	type testCase struct {
		name     string
		sweeper  *fakeSweeper
		wantErr  bool
		wantLast bool
	}

	tests := []testCase{
		{
			name:     "records the report",
			sweeper:  &fakeSweeper{report: creditline.SweepReport{Scanned: 4, Updated: 2}},
			wantLast: true,
		},
		{
			name:    "failure keeps no report",
			sweeper: &fakeSweeper{err: errors.New("db down")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := sweep.New(tt.sweeper, "@hourly", time.Second)
			require.NoError(t, err)

			report, err := s.RunNow(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.sweeper.report, report)
			}

			last, ok := s.LastReport()
			assert.Equal(t, tt.wantLast, ok)

			if ok {
				assert.Equal(t, tt.sweeper.report, last)
			}

			assert.Equal(t, int32(1), tt.sweeper.calls.Load())
		})
	}
}

func TestScheduler_StartStop(t *testing.T) {
	f := &fakeSweeper{ran: make(chan struct{}, 1)}

	s, err := sweep.New(f, "@every 1s", time.Second)
	require.NoError(t, err)

	s.Start()

	select {
	case <-f.ran:
	case <-time.After(5 * time.Second):
		t.Fatal("sweep was never scheduled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.Stop(ctx))
	assert.GreaterOrEqual(t, f.calls.Load(), int32(1))
}
