package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/you/dispatchsvc/domain"
	"github.com/you/dispatchsvc/internal/metrics"
	"github.com/you/dispatchsvc/internal/phone"
)

// OTP code checkers
const (
	CheckerGateway = "gateway"
	CheckerLocal   = "local"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// OTPConfig holds issuance and verification settings
type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
	Checker     string
}

// OTPServiceImpl implements domain.OTPService on top of stored issuance records
type OTPServiceImpl struct {
	otps       domain.OTPRepository
	users      domain.UserRepository
	limiter    *RateLimiter
	phones     *phone.Normalizer
	templater  *MessageTemplater
	hasher     domain.CodeHasher
	sms        domain.SMSSender
	otpGateway domain.OTPGateway
	logs       domain.DeliveryLogRepository
	logger     *zap.Logger
	config     OTPConfig
	now        func() time.Time
}

// OTPDeps groups the collaborators of the OTP service
type OTPDeps struct {
	OTPs       domain.OTPRepository
	Users      domain.UserRepository
	Limiter    *RateLimiter
	Phones     *phone.Normalizer
	Templater  *MessageTemplater
	Hasher     domain.CodeHasher
	SMS        domain.SMSSender
	OTPGateway domain.OTPGateway // nil forces local checking
	Logs       domain.DeliveryLogRepository
	Logger     *zap.Logger
}

// NewOTPService creates a new OTP service
func NewOTPService(deps OTPDeps, config OTPConfig) domain.OTPService {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.TTL <= 0 {
		config.TTL = 10 * time.Minute
	}
	if deps.OTPGateway == nil {
		config.Checker = CheckerLocal
	}
	return &OTPServiceImpl{
		otps:       deps.OTPs,
		users:      deps.Users,
		limiter:    deps.Limiter,
		phones:     deps.Phones,
		templater:  deps.Templater,
		hasher:     deps.Hasher,
		sms:        deps.SMS,
		otpGateway: deps.OTPGateway,
		logs:       deps.Logs,
		logger:     deps.Logger.Named("otp"),
		config:     config,
		now:        time.Now,
	}
}

// SendOTP implements domain.OTPService
func (s *OTPServiceImpl) SendOTP(ctx context.Context, rawPhone string, purpose domain.OTPPurpose, userID *uint) domain.OTPSendResult {
	res := s.sendOTP(ctx, rawPhone, purpose, userID)
	metrics.OTPIssued.WithLabelValues(string(purpose), metrics.Result(res.Success)).Inc()
	return res
}

func (s *OTPServiceImpl) sendOTP(ctx context.Context, rawPhone string, purpose domain.OTPPurpose, userID *uint) domain.OTPSendResult {
	number, ok := s.phones.NormalizeValid(rawPhone)
	if !ok {
		return sendFailure(domain.ErrInvalidPhoneNumber)
	}
	if !purpose.Valid() {
		return sendFailure(fmt.Errorf("%w: unknown otp purpose %q", domain.ErrInvalidInput, purpose))
	}

	release, err := s.limiter.Acquire(ctx, number, purpose)
	if err != nil {
		if !errors.Is(err, domain.ErrRateLimited) {
			s.logger.Error("otp rate check failed", zap.String("phone", number), zap.Error(err))
		}
		return sendFailure(err)
	}
	defer release()

	// The gateway checker keeps the code on the provider side, so nothing is stored locally.
	var code, hash string
	if s.config.Checker == CheckerLocal {
		code, err = generateCode()
		if err != nil {
			s.logger.Error("failed to generate otp", zap.Error(err))
			return sendFailure(fmt.Errorf("%w: generate code: %v", domain.ErrPersistenceError, err))
		}
		hash, err = s.hasher.Hash(code)
		if err != nil {
			s.logger.Error("failed to hash otp", zap.Error(err))
			return sendFailure(fmt.Errorf("%w: hash code: %v", domain.ErrPersistenceError, err))
		}
	}

	now := s.now()
	record := &domain.OTPRecord{
		PhoneNumber: number,
		Code:        hash,
		Purpose:     purpose,
		UserID:      userID,
		MaxAttempts: s.config.MaxAttempts,
		ExpiresAt:   now.Add(s.config.TTL),
		CreatedAt:   now,
	}
	if err := s.otps.Create(ctx, record); err != nil {
		s.logger.Error("failed to store otp", zap.String("phone", number), zap.Error(err))
		return sendFailure(fmt.Errorf("%w: store otp: %v", domain.ErrPersistenceError, err))
	}

	if err := s.dispatch(ctx, number, purpose, code); err != nil {
		if delErr := s.otps.Delete(ctx, record.ID); delErr != nil {
			s.logger.Error("failed to remove undelivered otp", zap.Uint("otp_id", record.ID), zap.Error(delErr))
		}
		s.logger.Warn("otp dispatch failed", zap.String("phone", number), zap.String("purpose", string(purpose)), zap.Error(err))
		return sendFailure(err)
	}

	s.logger.Info("otp sent", zap.String("phone", number), zap.String("purpose", string(purpose)), zap.Uint("otp_id", record.ID))
	return domain.OTPSendResult{
		Success: true,
		Message: "Verification code sent successfully",
		OTPID:   record.ID,
	}
}

// dispatch hands the code to the provider. The returned error always wraps ErrGatewayError.
func (s *OTPServiceImpl) dispatch(ctx context.Context, number string, purpose domain.OTPPurpose, code string) error {
	if s.config.Checker == CheckerGateway {
		message := s.templater.OTPMessage(GatewayOTPPlaceholder, purpose, s.config.TTL)
		err := s.otpGateway.GenerateOTP(ctx, number, message, s.config.TTL)
		s.recordGatewayOTP(ctx, number, message, err)
		if err != nil {
			return asGatewayError(err)
		}
		return nil
	}

	message := s.templater.OTPMessage(code, purpose, s.config.TTL)
	masked := s.templater.OTPMessage(strings.Repeat("*", len(code)), purpose, s.config.TTL)
	if !s.sms.Send(ctx, number, message, domain.SendContext{LogMessage: masked}) {
		return fmt.Errorf("%w: failed to deliver verification code", domain.ErrGatewayError)
	}
	return nil
}

func (s *OTPServiceImpl) recordGatewayOTP(ctx context.Context, number, message string, sendErr error) {
	entry := &domain.DeliveryLogEntry{
		Channel:   domain.ChannelSMS,
		Recipient: number,
		Message:   message,
		Status:    domain.DeliverySent,
		CreatedAt: s.now(),
	}
	if sendErr != nil {
		entry.Status = domain.DeliveryFailed
		entry.ErrorMessage = sendErr.Error()
	}
	metrics.DeliveryAttempts.WithLabelValues(string(entry.Channel), string(entry.Status)).Inc()
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("failed to write delivery log", zap.String("phone", number), zap.Error(err))
	}
}

// VerifyOTP implements domain.OTPService
func (s *OTPServiceImpl) VerifyOTP(ctx context.Context, rawPhone, code string, purpose domain.OTPPurpose) domain.OTPVerifyResult {
	res := s.verifyOTP(ctx, rawPhone, strings.TrimSpace(code), purpose)
	metrics.OTPVerified.WithLabelValues(string(purpose), metrics.Result(res.Success)).Inc()
	return res
}

func (s *OTPServiceImpl) verifyOTP(ctx context.Context, rawPhone, code string, purpose domain.OTPPurpose) domain.OTPVerifyResult {
	number, ok := s.phones.NormalizeValid(rawPhone)
	if !ok {
		return verifyFailure(domain.ErrInvalidPhoneNumber)
	}
	if !purpose.Valid() {
		return verifyFailure(fmt.Errorf("%w: unknown otp purpose %q", domain.ErrInvalidInput, purpose))
	}
	if code == "" {
		return verifyFailure(fmt.Errorf("%w: code is required", domain.ErrInvalidInput))
	}

	// The provider is authoritative in gateway mode; a rejection leaves local state untouched.
	if s.config.Checker == CheckerGateway {
		if err := s.otpGateway.VerifyOTP(ctx, number, code); err != nil {
			if !errors.Is(err, domain.ErrInvalidOrExpiredOTP) {
				err = asGatewayError(err)
			}
			return verifyFailure(err)
		}
	}

	now := s.now()
	record, err := s.otps.FindLatestActive(ctx, number, purpose, now)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return verifyFailure(domain.ErrRecordNotFound)
		}
		s.logger.Error("failed to load otp", zap.String("phone", number), zap.Error(err))
		return verifyFailure(fmt.Errorf("%w: load otp: %v", domain.ErrPersistenceError, err))
	}

	if record.Exhausted() {
		return verifyFailure(domain.ErrMaxAttemptsExceeded)
	}

	record.Attempts++
	if s.config.Checker == CheckerLocal && !s.hasher.Verify(record.Code, code) {
		if err := s.otps.Update(ctx, record); err != nil {
			s.logger.Error("failed to record otp attempt", zap.Uint("otp_id", record.ID), zap.Error(err))
		}
		return verifyFailure(domain.ErrInvalidOrExpiredOTP)
	}

	record.IsVerified = true
	record.VerifiedAt = &now
	if err := s.otps.Update(ctx, record); err != nil {
		s.logger.Error("failed to mark otp verified", zap.Uint("otp_id", record.ID), zap.Error(err))
		return verifyFailure(fmt.Errorf("%w: update otp: %v", domain.ErrPersistenceError, err))
	}

	// The account is only touched when the verified number is the one on file.
	verifiedUser := record.UserID
	if verifiedUser != nil {
		if err := s.users.MarkPhoneVerified(ctx, *verifiedUser, number); err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				s.logger.Warn("verified phone does not belong to user", zap.Uint("user_id", *verifiedUser), zap.String("phone", number))
			} else {
				s.logger.Error("failed to mark phone verified", zap.Uint("user_id", *verifiedUser), zap.Error(err))
			}
			verifiedUser = nil
		}
	}

	s.logger.Info("otp verified", zap.String("phone", number), zap.String("purpose", string(purpose)))
	return domain.OTPVerifyResult{
		Success: true,
		Message: "Phone number verified successfully",
		UserID:  verifiedUser,
	}
}

// CleanupExpired removes expired records and verified records older than olderThan
func (s *OTPServiceImpl) CleanupExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	removed, err := s.otps.DeleteStale(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("%w: cleanup otps: %v", domain.ErrPersistenceError, err)
	}
	if removed > 0 {
		s.logger.Info("removed stale otp records", zap.Int64("count", removed))
	}
	return removed, nil
}

// generateCode returns a uniformly random 6-digit code
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

func asGatewayError(err error) error {
	if errors.Is(err, domain.ErrGatewayError) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrGatewayError, err)
}

func sendFailure(err error) domain.OTPSendResult {
	return domain.OTPSendResult{Message: err.Error(), Err: err}
}

func verifyFailure(err error) domain.OTPVerifyResult {
	return domain.OTPVerifyResult{Message: err.Error(), Err: err}
}
