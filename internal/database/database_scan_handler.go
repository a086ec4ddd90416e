package database

import (
	"scangate/internal/domain"
)

const maxScanListSize = 100

func CreateScanRequest(req *domain.ScanRequest) error {
	if req.Status == "" {
		req.Status = domain.ScanStatusQueued
	}
	return DB.Create(req).Error
}

func UpdateScanStatus(id uint, status string) error {
	return DB.Model(&domain.ScanRequest{}).Where("id = ?", id).Update("status", status).Error
}

// ListScanRequests returns the newest requests of a user first.
func ListScanRequests(userID uint, limit int) ([]domain.ScanRequest, error) {
	if limit <= 0 || limit > maxScanListSize {
		limit = maxScanListSize
	}

	var requests []domain.ScanRequest
	err := DB.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&requests).Error
	return requests, err
}
