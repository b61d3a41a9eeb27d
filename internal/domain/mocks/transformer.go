package mocks

import (
	"io"

	"github.com/UserDirectory/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockTransformer struct {
	mock.Mock
}

func (m *MockTransformer) Transform(reader io.Reader) ([]domain.User, error) {
	args := m.Called(reader)

	// Handle nil users
	var users []domain.User
	if args.Get(0) != nil {
		users = args.Get(0).([]domain.User)
	}

	return users, args.Error(1)
}
