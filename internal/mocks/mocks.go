// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/humantype/internal/humanoid"
	"github.com/xkilldash9x/humantype/internal/session"
)

// -- Controller Mock --

// MockController mocks the session controller as seen by the control
// surface and the status stream.
type MockController struct {
	mock.Mock
}

func (m *MockController) Status() session.Status {
	args := m.Called()
	return args.Get(0).(session.Status)
}

func (m *MockController) Start(ctx context.Context, text string) (session.Status, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(session.Status), args.Error(1)
}

func (m *MockController) Stop() {
	m.Called()
}

func (m *MockController) TogglePause() (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

// UpdateConfig runs update against the config given as the first return
// value, so tests see the same all-or-nothing behavior as the real
// controller.
func (m *MockController) UpdateConfig(update func(humanoid.Config) (humanoid.Config, error)) (humanoid.Config, error) {
	args := m.Called(mock.Anything)
	current := args.Get(0).(humanoid.Config)
	if err := args.Error(1); err != nil {
		return current, err
	}
	return update(current)
}

func (m *MockController) SetWPM(wpm int) int {
	args := m.Called(wpm)
	return args.Int(0)
}

func (m *MockController) Calibrate(s humanoid.Samples) (humanoid.Profile, error) {
	args := m.Called(s)
	return args.Get(0).(humanoid.Profile), args.Error(1)
}
