package services

import (
	"context"
	"fmt"
	"sync"
)

// MockProvisioner hands out fake Auth0 IDs
type MockProvisioner struct {
	mu       sync.Mutex
	accounts map[string]string
	err      error
}

func NewMockProvisioner() *MockProvisioner {
	return &MockProvisioner{accounts: make(map[string]string)}
}

// FailWith makes every following call return err
func (m *MockProvisioner) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockProvisioner) ProvisionAccount(_ context.Context, email, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	id := fmt.Sprintf("auth0|mock-%d", len(m.accounts)+1)
	m.accounts[email] = id
	return id, nil
}

// Provisioned returns the Auth0 ID created for email, if any
func (m *MockProvisioner) Provisioned(email string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.accounts[email]
	return id, ok
}
