package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/shipping/model"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/logger"
)

// ErrCarrierUnavailable is returned while a carrier's breaker is open; no
// upstream call is made.
var ErrCarrierUnavailable = errors.New("CARRIER_UNAVAILABLE")

// Settings mirror the breaker contract: trip after FailureThreshold failures
// inside Window, cool down for Cooldown, then allow a single probe.
type Settings struct {
	FailureThreshold uint32
	Window           time.Duration
	Cooldown         time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		FailureThreshold: 5,
		Window:           30 * time.Second,
		Cooldown:         60 * time.Second,
	}
}

// Manager keeps one breaker per carrier. Tripping one carrier never affects
// another; state transitions are serialized inside gobreaker.
type Manager struct {
	settings Settings

	mu       sync.Mutex
	breakers map[model.Carrier]*gobreaker.CircuitBreaker
}

func NewManager(settings Settings) *Manager {
	return &Manager{
		settings: settings,
		breakers: make(map[model.Carrier]*gobreaker.CircuitBreaker),
	}
}

func (m *Manager) breakerFor(carrier model.Carrier) *gobreaker.CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cb, ok := m.breakers[carrier]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(carrier),
		MaxRequests: 1, // single probe in half-open
		Interval:    m.settings.Window,
		Timeout:     m.settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.TotalFailures >= m.settings.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("carrier breaker state change", map[string]interface{}{
				"carrier": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
	m.breakers[carrier] = cb
	return cb
}

// Execute guards an outbound carrier call. While the breaker is open the
// call fails fast with ErrCarrierUnavailable.
func (m *Manager) Execute(carrier model.Carrier, fn func() (interface{}, error)) (interface{}, error) {
	result, err := m.breakerFor(carrier).Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCarrierUnavailable
	}
	return result, err
}

// State reports the carrier's breaker state for health surfaces.
func (m *Manager) State(carrier model.Carrier) gobreaker.State {
	return m.breakerFor(carrier).State()
}
