package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/dispatchsvc/domain"
)

// PolicyHandlers lets admins grant other roles access to admin routes
type PolicyHandlers struct {
	policies domain.PolicyManager
	log      *zap.Logger
}

func NewPolicyHandlers(policies domain.PolicyManager, log *zap.Logger) *PolicyHandlers {
	return &PolicyHandlers{policies: policies, log: log}
}

// PolicyRequest is one (subject, object, action) rule, e.g. ("landlord", "/admin/notifications", "(POST)")
type PolicyRequest struct {
	Subject string `json:"subject" binding:"required"`
	Object  string `json:"object" binding:"required"`
	Action  string `json:"action" binding:"required"`
}

func (h *PolicyHandlers) List(c *gin.Context) {
	rules, err := h.policies.ListPolicies()
	if err != nil {
		h.log.Error("failed to list policies", zap.Error(err))
		fail(c, err, "", "Failed to load policies")
		return
	}
	out := make([]gin.H, 0, len(rules))
	for _, r := range rules {
		if len(r) < 3 {
			continue
		}
		out = append(out, gin.H{"subject": r[0], "object": r[1], "action": r[2]})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Policies retrieved", "policies": out})
}

func (h *PolicyHandlers) Add(c *gin.Context) {
	var req PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	added, err := h.policies.AddPolicy(req.Subject, req.Object, req.Action)
	if err != nil {
		fail(c, err, "", "Failed to add policy")
		return
	}
	if !added {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Policy already exists"})
		return
	}
	h.log.Info("policy added", zap.String("subject", req.Subject), zap.String("object", req.Object), zap.String("action", req.Action))
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Policy added"})
}

func (h *PolicyHandlers) Remove(c *gin.Context) {
	var req PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	removed, err := h.policies.RemovePolicy(req.Subject, req.Object, req.Action)
	if err != nil {
		fail(c, err, "", "Failed to remove policy")
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Policy not found"})
		return
	}
	h.log.Info("policy removed", zap.String("subject", req.Subject), zap.String("object", req.Object), zap.String("action", req.Action))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Policy removed"})
}
