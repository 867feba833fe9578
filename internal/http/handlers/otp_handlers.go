package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/dispatchsvc/domain"
)

// OTPHandlers handles phone verification requests
type OTPHandlers struct {
	otpSvc domain.OTPService
	log    *zap.Logger
}

// NewOTPHandlers creates new OTP handlers
func NewOTPHandlers(otpSvc domain.OTPService, log *zap.Logger) *OTPHandlers {
	return &OTPHandlers{otpSvc: otpSvc, log: log}
}

// SendOTPRequest represents an anonymous OTP issuance request
type SendOTPRequest struct {
	Phone   string `json:"phone" binding:"required"`
	Purpose string `json:"purpose" binding:"required"`
}

// PhoneVerificationRequest asks for a code that verifies the caller's own phone
type PhoneVerificationRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// VerifyOTPRequest represents an OTP verification request
type VerifyOTPRequest struct {
	Phone   string `json:"phone" binding:"required"`
	Code    string `json:"code" binding:"required,len=6,numeric"`
	Purpose string `json:"purpose" binding:"required"`
}

// SendOTP issues a code to the phone number
func (h *OTPHandlers) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	h.send(c, req.Phone, domain.OTPPurpose(req.Purpose), nil)
}

// SendPhoneVerification issues a registration code bound to the authenticated caller.
// Verifying it marks the caller's phone verified when the number matches the account.
func (h *OTPHandlers) SendPhoneVerification(c *gin.Context) {
	rc, ok := currentUser(c)
	if !ok {
		return
	}
	var req PhoneVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	userID := rc.UserID
	h.send(c, req.Phone, domain.OTPPurposeRegistration, &userID)
}

func (h *OTPHandlers) send(c *gin.Context, phone string, purpose domain.OTPPurpose, userID *uint) {
	res := h.otpSvc.SendOTP(c.Request.Context(), phone, purpose, userID)
	if !res.Success {
		fail(c, res.Err, res.Message, "Failed to send verification code")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": res.Message,
		"otp_id":  res.OTPID,
	})
}

// VerifyOTP checks a submitted code
func (h *OTPHandlers) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res := h.otpSvc.VerifyOTP(c.Request.Context(), req.Phone, req.Code, domain.OTPPurpose(req.Purpose))
	if !res.Success {
		fail(c, res.Err, res.Message, "Verification failed")
		return
	}

	body := gin.H{"success": true, "message": res.Message}
	if res.UserID != nil {
		body["user_id"] = *res.UserID
	}
	c.JSON(http.StatusOK, body)
}
