package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"scangate/internal/domain"
)

var ErrEmailTaken = errors.New("database: email already in use")

func GetUserFromId(id uint) (domain.User, error) {
	var user domain.User
	err := DB.Where("id = ?", id).First(&user).Error
	return user, err
}

func GetUserByEmail(email string) (domain.User, error) {
	var user domain.User
	err := DB.Where("email = ?", normalizeEmail(email)).First(&user).Error
	return user, err
}

// CreateUser stores a new account. The first account ever created becomes admin.
func CreateUser(user *domain.User) error {
	user.Email = normalizeEmail(user.Email)

	return DB.Transaction(func(tx *gorm.DB) error {
		var existing domain.User
		err := tx.Select("id").Where("email = ?", user.Email).First(&existing).Error
		if err == nil {
			return ErrEmailTaken
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("database: lookup email: %w", err)
		}

		var count int64
		if err := tx.Model(&domain.User{}).Count(&count).Error; err != nil {
			return fmt.Errorf("database: count users: %w", err)
		}
		user.Role = domain.RoleUser
		if count == 0 {
			user.Role = domain.RoleAdmin
		}

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("database: create user: %w", err)
		}
		return nil
	})
}

func ChangePassword(userID uint, hashedPassword string) error {
	res := DB.Model(&domain.User{}).Where("id = ?", userID).Update("password", hashedPassword)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
