package server

import "time"

// mockClock is a Clock that can be manually controlled for testing
type mockClock struct {
	now time.Time
}

func newMockClock(t time.Time) *mockClock {
	return &mockClock{now: t}
}

func (m *mockClock) Now() time.Time {
	return m.now
}

func (m *mockClock) Add(d time.Duration) {
	m.now = m.now.Add(d)
}
