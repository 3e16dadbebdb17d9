package breaker

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/shipping/model"
)

var errUpstream = errors.New("upstream failure")

func failingCall(counter *int64) func() (interface{}, error) {
	return func() (interface{}, error) {
		atomic.AddInt64(counter, 1)
		return nil, errUpstream
	}
}

func succeedingCall(counter *int64) func() (interface{}, error) {
	return func() (interface{}, error) {
		atomic.AddInt64(counter, 1)
		return "ok", nil
	}
}

func testSettings() Settings {
	return Settings{
		FailureThreshold: 5,
		Window:           time.Second,
		Cooldown:         100 * time.Millisecond,
	}
}

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	m := NewManager(testSettings())
	var upstreamCalls int64

	for i := 0; i < 5; i++ {
		_, err := m.Execute(model.CarrierFedEx, failingCall(&upstreamCalls))
		assert.ErrorIs(t, err, errUpstream)
	}

	// 6th call short-circuits without touching upstream.
	_, err := m.Execute(model.CarrierFedEx, failingCall(&upstreamCalls))
	assert.ErrorIs(t, err, ErrCarrierUnavailable)
	assert.EqualValues(t, 5, atomic.LoadInt64(&upstreamCalls))
}

func TestBreaker_CarrierIsolation(t *testing.T) {
	m := NewManager(testSettings())
	var fedexCalls, dhlCalls int64

	for i := 0; i < 5; i++ {
		m.Execute(model.CarrierFedEx, failingCall(&fedexCalls))
	}
	_, err := m.Execute(model.CarrierFedEx, failingCall(&fedexCalls))
	require.ErrorIs(t, err, ErrCarrierUnavailable)

	// DHL is unaffected by the tripped FedEx breaker.
	result, err := m.Execute(model.CarrierDHL, succeedingCall(&dhlCalls))
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.EqualValues(t, 1, atomic.LoadInt64(&dhlCalls))
}

func TestBreaker_RecoveryOnProbeSuccess(t *testing.T) {
	m := NewManager(testSettings())
	var calls int64

	for i := 0; i < 5; i++ {
		m.Execute(model.CarrierFedEx, failingCall(&calls))
	}
	require.Equal(t, gobreaker.StateOpen, m.State(model.CarrierFedEx))

	// After cool-down a single probe is allowed; success closes the breaker.
	time.Sleep(150 * time.Millisecond)

	result, err := m.Execute(model.CarrierFedEx, succeedingCall(&calls))
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	require.Equal(t, gobreaker.StateClosed, m.State(model.CarrierFedEx))

	// Counter is cleared: subsequent calls pass through normally.
	_, err = m.Execute(model.CarrierFedEx, succeedingCall(&calls))
	require.NoError(t, err)
}

func TestBreaker_ReopensOnProbeFailure(t *testing.T) {
	m := NewManager(testSettings())
	var calls int64

	for i := 0; i < 5; i++ {
		m.Execute(model.CarrierFedEx, failingCall(&calls))
	}

	time.Sleep(150 * time.Millisecond)

	// Probe fails: straight back to open.
	_, err := m.Execute(model.CarrierFedEx, failingCall(&calls))
	require.ErrorIs(t, err, errUpstream)

	_, err = m.Execute(model.CarrierFedEx, failingCall(&calls))
	assert.ErrorIs(t, err, ErrCarrierUnavailable)
	assert.EqualValues(t, 6, atomic.LoadInt64(&calls))
}

func TestBreaker_ConcurrentFailuresTripOnce(t *testing.T) {
	m := NewManager(testSettings())
	var upstreamCalls int64
	var unavailable int64

	for i := 0; i < 5; i++ {
		m.Execute(model.CarrierFedEx, failingCall(&upstreamCalls))
	}
	require.Equal(t, gobreaker.StateOpen, m.State(model.CarrierFedEx))

	// The breaker tripped exactly once; every concurrent call in the same
	// window short-circuits without reaching upstream.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Execute(model.CarrierFedEx, failingCall(&upstreamCalls))
			if errors.Is(err, ErrCarrierUnavailable) {
				atomic.AddInt64(&unavailable, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 50, atomic.LoadInt64(&unavailable))
	assert.EqualValues(t, 5, atomic.LoadInt64(&upstreamCalls))
}

func TestBreaker_WindowRollsOverCounter(t *testing.T) {
	m := NewManager(Settings{
		FailureThreshold: 5,
		Window:           50 * time.Millisecond,
		Cooldown:         time.Second,
	})
	var calls int64

	for i := 0; i < 4; i++ {
		m.Execute(model.CarrierFedEx, failingCall(&calls))
	}

	// Window rolls over; the counter resets and four more failures do not trip.
	time.Sleep(80 * time.Millisecond)
	for i := 0; i < 4; i++ {
		_, err := m.Execute(model.CarrierFedEx, failingCall(&calls))
		assert.ErrorIs(t, err, errUpstream)
	}

	assert.Equal(t, gobreaker.StateClosed, m.State(model.CarrierFedEx))
}
