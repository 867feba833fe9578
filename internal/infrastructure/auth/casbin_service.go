package auth

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"

	"github.com/you/dispatchsvc/domain"
)

// DefaultPolicies grants admins the admin API. Subjects are "role_" + role.
var DefaultPolicies = [][]string{
	{"role_admin", "/admin/*", "(GET)|(POST)|(DELETE)"},
}

// CasbinService wraps an enforcer backed by the casbin_rule table
type CasbinService struct{ E *casbin.Enforcer }

// NewCasbinService loads the model and stored policies, seeding DefaultPolicies when missing
func NewCasbinService(db *gorm.DB, modelPath string) (*CasbinService, error) {
	adp, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("casbin adapter: %w", err)
	}
	E, err := casbin.NewEnforcer(modelPath, adp)
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}
	if err := E.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	// AddPolicy is a no-op for rules already stored
	for _, p := range DefaultPolicies {
		if _, err := E.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, fmt.Errorf("seed policy %v: %w", p, err)
		}
	}
	return &CasbinService{E}, nil
}

// Enforce implements domain.PolicyEnforcer
func (s *CasbinService) Enforce(rvals ...interface{}) (bool, error) {
	return s.E.Enforce(rvals...)
}

// ListPolicies returns every stored rule
func (s *CasbinService) ListPolicies() ([][]string, error) {
	return s.E.GetPolicy()
}

// AddPolicy stores a rule. Subjects without the "role_" prefix get it.
func (s *CasbinService) AddPolicy(subject, object, action string) (bool, error) {
	sub, err := policySubject(subject, object, action)
	if err != nil {
		return false, err
	}
	return s.E.AddPolicy(sub, object, action)
}

// RemovePolicy deletes a rule. DefaultPolicies cannot be removed.
func (s *CasbinService) RemovePolicy(subject, object, action string) (bool, error) {
	sub, err := policySubject(subject, object, action)
	if err != nil {
		return false, err
	}
	for _, p := range DefaultPolicies {
		if p[0] == sub && p[1] == object && p[2] == action {
			return false, fmt.Errorf("%w: default policy cannot be removed", domain.ErrInvalidInput)
		}
	}
	return s.E.RemovePolicy(sub, object, action)
}

func policySubject(subject, object, action string) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" || strings.TrimSpace(object) == "" || strings.TrimSpace(action) == "" {
		return "", fmt.Errorf("%w: subject, object and action are required", domain.ErrInvalidInput)
	}
	if !strings.HasPrefix(subject, "role_") {
		subject = "role_" + subject
	}
	return subject, nil
}

var _ domain.PolicyManager = (*CasbinService)(nil)
