package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"scangate/internal/domain"
)

var ErrResetTokenInvalid = errors.New("database: reset token invalid or expired")

// CreatePasswordReset replaces any outstanding reset for the user.
func CreatePasswordReset(userID uint, tokenHash string, expiresAt time.Time) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND used_at IS NULL", userID).Delete(&domain.PasswordReset{}).Error; err != nil {
			return fmt.Errorf("database: drop previous resets: %w", err)
		}
		reset := domain.PasswordReset{
			UserID:    userID,
			TokenHash: tokenHash,
			ExpiresAt: expiresAt,
		}
		if err := tx.Create(&reset).Error; err != nil {
			return fmt.Errorf("database: create reset: %w", err)
		}
		return nil
	})
}

// ConsumePasswordReset marks the token used and sets the new password hash
// in one transaction. It returns the affected user id.
func ConsumePasswordReset(tokenHash, hashedPassword string, now time.Time) (uint, error) {
	var userID uint

	err := DB.Transaction(func(tx *gorm.DB) error {
		var reset domain.PasswordReset
		if err := tx.Where("token_hash = ?", tokenHash).First(&reset).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrResetTokenInvalid
			}
			return err
		}
		if !reset.Usable(now) {
			return ErrResetTokenInvalid
		}

		res := tx.Model(&domain.PasswordReset{}).
			Where("id = ? AND used_at IS NULL", reset.ID).
			Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrResetTokenInvalid
		}

		if err := tx.Model(&domain.User{}).Where("id = ?", reset.UserID).Update("password", hashedPassword).Error; err != nil {
			return err
		}

		userID = reset.UserID
		return nil
	})

	return userID, err
}

func DeleteExpiredPasswordResets(ctx context.Context, now time.Time) (int64, error) {
	res := DB.WithContext(ctx).
		Where("expires_at <= ? OR used_at IS NOT NULL", now).
		Delete(&domain.PasswordReset{})
	return res.RowsAffected, res.Error
}
