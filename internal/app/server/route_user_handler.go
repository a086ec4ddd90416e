package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"scangate/internal/api/dto"
	"scangate/internal/auth"
	"scangate/internal/config"
	"scangate/internal/database"
	"scangate/internal/domain"
	"scangate/internal/security"
	"scangate/internal/validation"
)

const forgotPasswordMessage = "If the email is registered, a reset link has been sent"

func checkLogin(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func registerUser(w http.ResponseWriter, r *http.Request) {
	var credentials dto.Credentials
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if !validation.IsValidEmail(credentials.Email) {
		writeError(w, "Invalid email format", http.StatusBadRequest)
		return
	}

	if check := validation.ValidatePassword(credentials.Password); !check.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   check.Errors[0],
			"details": check.Errors,
		})
		return
	}

	hashedPassword, err := auth.HashPassword(credentials.Password)
	if err != nil {
		writeError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	user := domain.User{
		Email:    credentials.Email,
		Password: hashedPassword,
	}
	if err := database.CreateUser(&user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			writeError(w, "Email already in use", http.StatusConflict)
			return
		}
		log.Error("Failed to create user", "error", err)
		writeError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Role)
	if err != nil {
		writeError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	log.Info("User registered", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusCreated, map[string]string{"token": token, "role": user.Role})
}

func loginUser(w http.ResponseWriter, r *http.Request) {
	var credentials dto.Credentials
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	// Same answer for unknown email and wrong password
	user, err := database.GetUserByEmail(credentials.Email)
	if err != nil || !auth.CheckPasswordHash(credentials.Password, user.Password) {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("Failed to load user", "error", err)
		}
		writeError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Role)
	if err != nil {
		writeError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token, "role": user.Role})
}

func changePassword(w http.ResponseWriter, r *http.Request) {
	userID, userErr := auth.GetUserIDFromRequest(r)
	if userErr != nil {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var changeUserPassword dto.ChangePassword
	if err := json.NewDecoder(r.Body).Decode(&changeUserPassword); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	user, err := database.GetUserFromId(userID)
	if err != nil {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if !auth.CheckPasswordHash(changeUserPassword.OldPassword, user.Password) {
		writeError(w, "Invalid old password", http.StatusUnauthorized)
		return
	}

	if check := validation.ValidatePassword(changeUserPassword.NewPassword); !check.Valid {
		writeError(w, check.Errors[0], http.StatusBadRequest)
		return
	}

	hashed, err := auth.HashPassword(changeUserPassword.NewPassword)
	if err != nil {
		writeError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	if err := database.ChangePassword(userID, hashed); err != nil {
		log.Error("Failed to change password", "user_id", userID, "error", err)
		writeError(w, "Failed to change password", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

// forgotPassword answers identically whether or not the email is known.
func forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPassword
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(req.Email)
	if !validation.IsValidEmail(email) {
		writeError(w, "Invalid email format", http.StatusBadRequest)
		return
	}

	user, err := database.GetUserByEmail(email)
	switch {
	case err == nil:
		issueResetToken(user)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		log.Error("Failed to look up user for password reset", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": forgotPasswordMessage})
}

func issueResetToken(user domain.User) {
	token, hash, err := security.NewResetToken()
	if err != nil {
		log.Error("Failed to generate reset token", "user_id", user.ID, "error", err)
		return
	}

	expiresAt := time.Now().Add(config.GetConfig().ResetTokenTTL())
	if err := database.CreatePasswordReset(user.ID, hash, expiresAt); err != nil {
		log.Error("Failed to store reset token", "user_id", user.ID, "error", err)
		return
	}

	// Mail delivery happens outside this service.
	if config.InProductionMode {
		log.Info("Password reset issued", "user_id", user.ID, "expires_at", expiresAt)
	} else {
		log.Debug("Password reset issued", "user_id", user.ID, "token", token, "expires_at", expiresAt)
	}
}

func resetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPassword
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Token) == "" {
		writeError(w, "Reset token is required", http.StatusBadRequest)
		return
	}

	if check := validation.ValidatePassword(req.Password); !check.Valid {
		writeError(w, check.Errors[0], http.StatusBadRequest)
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	userID, err := database.ConsumePasswordReset(security.HashResetToken(req.Token), hashed, time.Now())
	if err != nil {
		if errors.Is(err, database.ErrResetTokenInvalid) {
			writeError(w, "Invalid or expired reset token", http.StatusBadRequest)
			return
		}
		log.Error("Failed to reset password", "error", err)
		writeError(w, "Failed to reset password", http.StatusInternalServerError)
		return
	}

	log.Info("Password reset completed", "user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset"})
}
