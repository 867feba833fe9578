package mocks

import (
	"strings"

	"github.com/you/dispatchsvc/domain"
)

// MockCasbinEnforcer implements domain.PolicyManager for testing.
// Policies are {subject, path, method}; a path ending in "/*" matches by prefix and "*" matches any method.
type MockCasbinEnforcer struct {
	EnforceFunc      func(rvals ...interface{}) (bool, error)
	ListPoliciesFunc func() ([][]string, error)
	AddPolicyFunc    func(subject, object, action string) (bool, error)
	RemovePolicyFunc func(subject, object, action string) (bool, error)
	policies         [][]string
}

// Compile-time interface compliance verification
var _ domain.PolicyManager = (*MockCasbinEnforcer)(nil)

// NewMockCasbinEnforcer creates a new MockCasbinEnforcer with the service's default policies
func NewMockCasbinEnforcer() *MockCasbinEnforcer {
	return &MockCasbinEnforcer{
		policies: [][]string{
			{"role_admin", "/admin/*", "*"},
		},
	}
}

// Enforce checks if a request should be allowed
func (m *MockCasbinEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	if m.EnforceFunc != nil {
		return m.EnforceFunc(rvals...)
	}
	if len(rvals) < 3 {
		return false, nil
	}
	sub, ok1 := rvals[0].(string)
	obj, ok2 := rvals[1].(string)
	act, ok3 := rvals[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return false, nil
	}

	for _, p := range m.policies {
		if len(p) < 3 || p[0] != sub {
			continue
		}
		if !matchPath(p[1], obj) {
			continue
		}
		if p[2] == "*" || p[2] == act {
			return true, nil
		}
	}
	return false, nil
}

// SetPolicies sets the internal policies (test helper)
func (m *MockCasbinEnforcer) SetPolicies(policies [][]string) {
	m.policies = make([][]string, len(policies))
	for i, policy := range policies {
		m.policies[i] = make([]string, len(policy))
		copy(m.policies[i], policy)
	}
}

// ListPolicies returns the stored policies
func (m *MockCasbinEnforcer) ListPolicies() ([][]string, error) {
	if m.ListPoliciesFunc != nil {
		return m.ListPoliciesFunc()
	}
	// Default behavior: copy of the in-memory set
	out := make([][]string, len(m.policies))
	for i, p := range m.policies {
		out[i] = append([]string(nil), p...)
	}
	return out, nil
}

// AddPolicy appends a policy unless it already exists
func (m *MockCasbinEnforcer) AddPolicy(subject, object, action string) (bool, error) {
	if m.AddPolicyFunc != nil {
		return m.AddPolicyFunc(subject, object, action)
	}
	if m.indexOf(subject, object, action) >= 0 {
		return false, nil
	}
	m.policies = append(m.policies, []string{subject, object, action})
	return true, nil
}

// RemovePolicy drops a policy when present
func (m *MockCasbinEnforcer) RemovePolicy(subject, object, action string) (bool, error) {
	if m.RemovePolicyFunc != nil {
		return m.RemovePolicyFunc(subject, object, action)
	}
	i := m.indexOf(subject, object, action)
	if i < 0 {
		return false, nil
	}
	m.policies = append(m.policies[:i], m.policies[i+1:]...)
	return true, nil
}

func (m *MockCasbinEnforcer) indexOf(subject, object, action string) int {
	for i, p := range m.policies {
		if len(p) == 3 && p[0] == subject && p[1] == object && p[2] == action {
			return i
		}
	}
	return -1
}

func matchPath(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == path
}
