package goalloop

import "time"

// TimeProvider supplies the current time to the budget tracker. Injecting it
// keeps wall-clock behavior deterministic in tests.
type TimeProvider interface {
	Now() time.Time
}

// DefaultTimeProvider is the standard TimeProvider using the system clock.
type DefaultTimeProvider struct{}

// NewDefaultTimeProvider creates a new DefaultTimeProvider.
func NewDefaultTimeProvider() *DefaultTimeProvider {
	return &DefaultTimeProvider{}
}

// Now returns the current system time.
func (p *DefaultTimeProvider) Now() time.Time {
	return time.Now()
}

// MockTimeProvider is a TimeProvider that returns a controlled time.
// Useful for testing budget expiry without waiting.
type MockTimeProvider struct {
	current time.Time
}

// NewMockTimeProvider creates a MockTimeProvider at the given time.
func NewMockTimeProvider(t time.Time) *MockTimeProvider {
	return &MockTimeProvider{current: t}
}

// Now returns the controlled time.
func (m *MockTimeProvider) Now() time.Time {
	return m.current
}

// SetTime replaces the controlled time.
func (m *MockTimeProvider) SetTime(t time.Time) {
	m.current = t
}

// Advance moves the controlled time forward by d.
func (m *MockTimeProvider) Advance(d time.Duration) {
	m.current = m.current.Add(d)
}

// Compile-time check that both providers implement TimeProvider.
var (
	_ TimeProvider = (*DefaultTimeProvider)(nil)
	_ TimeProvider = (*MockTimeProvider)(nil)
)
