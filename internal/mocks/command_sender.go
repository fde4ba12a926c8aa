package mocks

import "github.com/stretchr/testify/mock"

// CommandSender is a mock implementation of services.CommandSender
type CommandSender struct {
	mock.Mock
}

func (m *CommandSender) SendCommand(deviceID, command string, data any) bool {
	args := m.Called(deviceID, command, data)
	return args.Bool(0)
}
