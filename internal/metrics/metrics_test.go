package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rbright/memora-native/internal/bridge"
	"github.com/rbright/memora-native/internal/ipc"
	"github.com/stretchr/testify/require"
)

type stubInvoker struct {
	err error
}

func (s stubInvoker) Invoke(_ context.Context, method string, _ json.RawMessage) (any, error) {
	if !bridge.Known(method) {
		return nil, bridge.ErrNotImplemented
	}
	return nil, s.err
}

func TestInstrumentCountsOutcomes(t *testing.T) {
	reg := NewRegistry()
	m := NewDispatch(reg)
	inv := m.Instrument(stubInvoker{})

	_, err := inv.Invoke(context.Background(), bridge.MethodGetDeviceState, nil)
	require.NoError(t, err)
	_, err = inv.Invoke(context.Background(), bridge.MethodGetDeviceState, nil)
	require.NoError(t, err)
	_, err = inv.Invoke(context.Background(), "unknownMethod", nil)
	require.ErrorIs(t, err, bridge.ErrNotImplemented)
	_, err = inv.Invoke(context.Background(), "anotherUnknown", nil)
	require.ErrorIs(t, err, bridge.ErrNotImplemented)

	require.Equal(t, float64(2), testutil.ToFloat64(m.Calls.WithLabelValues(bridge.MethodGetDeviceState, OutcomeOK)))
	require.Equal(t, float64(2), testutil.ToFloat64(m.Calls.WithLabelValues(otherMethod, OutcomeUnimplemented)))
	require.Equal(t, 2, testutil.CollectAndCount(m.Duration))
}

func TestInstrumentCountsErrors(t *testing.T) {
	m := NewDispatch(NewRegistry())
	inv := m.Instrument(stubInvoker{err: errors.New("boom")})

	_, err := inv.Invoke(context.Background(), bridge.MethodSendToBackground, nil)
	require.Error(t, err)
	require.Equal(t, float64(1), testutil.ToFloat64(m.Calls.WithLabelValues(bridge.MethodSendToBackground, OutcomeError)))
}

func TestHandlerServesDispatchMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewDispatch(reg)
	_, _ = m.Instrument(stubInvoker{}).Invoke(context.Background(), bridge.MethodGetDeviceState, nil)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `memora_native_dispatch_calls_total{method="getDeviceState",outcome="ok"} 1`)
	require.Contains(t, string(body), "go_goroutines")
}

func TestLivenessChecksAreNotCounted(t *testing.T) {
	m := NewDispatch(NewRegistry())
	socketPath := filepath.Join(t.TempDir(), "memora-native.sock")

	listener, err := ipc.Acquire(context.Background(), socketPath, 100*time.Millisecond, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- ipc.Serve(ctx, listener, bridge.IPCHandler(m.Instrument(stubInvoker{})))
	}()
	defer func() {
		cancel()
		require.NoError(t, <-serveDone)
	}()

	alive, err := ipc.Probe(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, alive)

	_, err = ipc.Acquire(context.Background(), socketPath, 100*time.Millisecond, 2)
	require.ErrorIs(t, err, ipc.ErrAlreadyRunning)

	require.Zero(t, testutil.CollectAndCount(m.Calls))
	require.Zero(t, testutil.CollectAndCount(m.Duration))
}
