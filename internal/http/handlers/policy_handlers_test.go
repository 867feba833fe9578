package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/dispatchsvc/domain"
	"github.com/you/dispatchsvc/internal/mocks"
)

func policyRouter(pm *mocks.MockCasbinEnforcer) *gin.Engine {
	h := NewPolicyHandlers(pm, zap.NewNop())
	r := gin.New()
	r.GET("/admin/policies", h.List)
	r.POST("/admin/policies", h.Add)
	r.DELETE("/admin/policies", h.Remove)
	return r
}

func TestPolicyHandlers_AddListRemove(t *testing.T) {
	gin.SetMode(gin.TestMode)

	pm := mocks.NewMockCasbinEnforcer()
	r := policyRouter(pm)
	rule := PolicyRequest{Subject: "role_landlord", Object: "/admin/notifications", Action: "(POST)"}

	w := performRequest(r, http.MethodPost, "/admin/policies", rule)
	require.Equal(t, http.StatusCreated, w.Code)

	w = performRequest(r, http.MethodPost, "/admin/policies", rule)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Policy already exists", decodeBody(t, w)["message"])

	w = performRequest(r, http.MethodGet, "/admin/policies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	policies := decodeBody(t, w)["policies"].([]interface{})
	require.Len(t, policies, 2)
	assert.Equal(t, "role_landlord", policies[1].(map[string]interface{})["subject"])

	w = performRequest(r, http.MethodDelete, "/admin/policies", rule)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodDelete, "/admin/policies", rule)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPolicyHandlers_Errors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	pm := mocks.NewMockCasbinEnforcer()
	pm.RemovePolicyFunc = func(subject, object, action string) (bool, error) {
		return false, fmt.Errorf("%w: default policy cannot be removed", domain.ErrInvalidInput)
	}
	pm.ListPoliciesFunc = func() ([][]string, error) {
		return nil, errors.New("connection reset")
	}
	r := policyRouter(pm)

	w := performRequest(r, http.MethodPost, "/admin/policies", map[string]string{"subject": "role_x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodDelete, "/admin/policies", PolicyRequest{Subject: "role_admin", Object: "/admin/*", Action: "(GET)|(POST)|(DELETE)"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodGet, "/admin/policies", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to load policies", decodeBody(t, w)["message"])
}
