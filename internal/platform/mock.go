package platform

import "context"

// MockDetector is a test implementation of Detector.
type MockDetector struct {
	info *Info
	err  error
}

// NewMockDetector creates a mock detector with specified return values.
func NewMockDetector(info *Info, err error) Detector {
	return &MockDetector{info: info, err: err}
}

// Detect returns the pre-configured info and error.
func (m *MockDetector) Detect(ctx context.Context) (*Info, error) {
	return m.info, m.err
}
