package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/you/dispatchsvc/domain"
)

func newOTP(phone string, purpose domain.OTPPurpose, createdAt time.Time) *domain.OTPRecord {
	return &domain.OTPRecord{
		PhoneNumber: phone,
		Code:        "$2a$10$hash",
		Purpose:     purpose,
		MaxAttempts: 3,
		ExpiresAt:   createdAt.Add(10 * time.Minute),
		CreatedAt:   createdAt,
	}
}

func TestOTPRepositoryImpl_CreatedSince(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	db := setupTestDB(t)
	repo := NewOTPRepository(db)

	if err := repo.Create(ctx, newOTP("233241234567", domain.OTPPurposeRegistration, now.Add(-time.Minute))); err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		name     string
		phone    string
		purpose  domain.OTPPurpose
		since    time.Time
		expected bool
	}{
		{"inside window", "233241234567", domain.OTPPurposeRegistration, now.Add(-2 * time.Minute), true},
		{"outside window", "233241234567", domain.OTPPurposeRegistration, now.Add(-30 * time.Second), false},
		{"other purpose", "233241234567", domain.OTPPurposeLogin, now.Add(-2 * time.Minute), false},
		{"other phone", "233200000000", domain.OTPPurposeRegistration, now.Add(-2 * time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.CreatedSince(ctx, tt.phone, tt.purpose, tt.since)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestOTPRepositoryImpl_FindLatestActive(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	phone := "233241234567"

	tests := []struct {
		name          string
		setup         func(repo domain.OTPRepository) uint
		expectedError error
	}{
		{
			name: "returns newest unverified record",
			setup: func(repo domain.OTPRepository) uint {
				older := newOTP(phone, domain.OTPPurposeLogin, now.Add(-5*time.Minute))
				newer := newOTP(phone, domain.OTPPurposeLogin, now.Add(-time.Minute))
				repo.Create(ctx, older)
				repo.Create(ctx, newer)
				return newer.ID
			},
		},
		{
			name: "skips verified records",
			setup: func(repo domain.OTPRepository) uint {
				rec := newOTP(phone, domain.OTPPurposeLogin, now.Add(-time.Minute))
				rec.IsVerified = true
				repo.Create(ctx, rec)
				return 0
			},
			expectedError: domain.ErrRecordNotFound,
		},
		{
			name: "skips expired records",
			setup: func(repo domain.OTPRepository) uint {
				rec := newOTP(phone, domain.OTPPurposeLogin, now.Add(-11*time.Minute))
				repo.Create(ctx, rec)
				return 0
			},
			expectedError: domain.ErrRecordNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewOTPRepository(setupTestDB(t))
			wantID := tt.setup(repo)

			rec, err := repo.FindLatestActive(ctx, phone, domain.OTPPurposeLogin, now)
			if tt.expectedError != nil {
				if err != tt.expectedError {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.ID != wantID {
				t.Errorf("expected record %d, got %d", wantID, rec.ID)
			}
		})
	}
}

func TestOTPRepositoryImpl_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := NewOTPRepository(setupTestDB(t))

	rec := newOTP("233241234567", domain.OTPPurposePasswordReset, now)
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec.Attempts = 2
	rec.IsVerified = true
	rec.VerifiedAt = &now
	if err := repo.Update(ctx, rec); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, err := repo.FindLatestActive(ctx, rec.PhoneNumber, rec.Purpose, now); err != domain.ErrRecordNotFound {
		t.Errorf("verified record should no longer be active, got %v", err)
	}

	if err := repo.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Update(ctx, rec); err != domain.ErrRecordNotFound {
		t.Errorf("expected ErrRecordNotFound after delete, got %v", err)
	}
}

func TestOTPRepositoryImpl_DeleteStale(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	cutoff := now.Add(-24 * time.Hour)
	db := setupTestDB(t)
	repo := NewOTPRepository(db)

	expiredLongAgo := newOTP("233200000001", domain.OTPPurposeLogin, now.Add(-48*time.Hour))
	verifiedLongAgo := newOTP("233200000002", domain.OTPPurposeLogin, now.Add(-30*time.Hour))
	verifiedLongAgo.IsVerified = true
	verifiedLongAgo.ExpiresAt = now.Add(time.Hour)
	fresh := newOTP("233200000003", domain.OTPPurposeLogin, now)

	for _, r := range []*domain.OTPRecord{expiredLongAgo, verifiedLongAgo, fresh} {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	deleted, err := repo.DeleteStale(ctx, cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}

	var remaining int64
	db.Model(&DBOTPRecord{}).Count(&remaining)
	if remaining != 1 {
		t.Errorf("expected 1 remaining record, got %d", remaining)
	}
}
