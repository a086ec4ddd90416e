package server

import (
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"scangate/internal/api/dto"
	"scangate/internal/auth"
	"scangate/internal/database"
	"scangate/internal/domain"
	"scangate/internal/scanqueue"
)

const defaultScanListSize = 20

type scanRoutes struct {
	dispatcher scanqueue.Dispatcher
}

// validateTarget reports what a scan request would be accepted as.
func validateTarget(w http.ResponseWriter, r *http.Request) {
	target, ok := TargetFromContext(r.Context())
	if !ok {
		writeError(w, "Target missing", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, target)
}

func (s *scanRoutes) createScan(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserIDFromRequest(r)
	if err != nil {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	target, ok := TargetFromContext(r.Context())
	if !ok {
		writeError(w, "Target missing", http.StatusInternalServerError)
		return
	}

	req := domain.ScanRequest{
		UserID:   userID,
		Target:   target.Clean,
		IsIP:     target.IsIP,
		Warnings: domain.WarningList(target.Warnings),
		Status:   domain.ScanStatusQueued,
	}
	if err := database.CreateScanRequest(&req); err != nil {
		log.Error("Failed to store scan request", "user_id", userID, "error", err)
		writeError(w, "Failed to create scan", http.StatusInternalServerError)
		return
	}

	if s.dispatcher == nil {
		s.markFailed(req.ID)
		writeError(w, "Scan queue unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := s.dispatcher.Dispatch(r.Context(), scanqueue.JobFromRequest(req)); err != nil {
		log.Error("Failed to dispatch scan", "scan_id", req.ID, "error", err)
		s.markFailed(req.ID)
		writeError(w, "Scan queue unavailable", http.StatusServiceUnavailable)
		return
	}

	log.Info("Scan queued", "scan_id", req.ID, "user_id", userID, "target", req.Target)
	writeJSON(w, http.StatusAccepted, toScanSummary(req))
}

func (s *scanRoutes) markFailed(id uint) {
	if err := database.UpdateScanStatus(id, domain.ScanStatusFailed); err != nil {
		log.Warn("Failed to mark scan as undispatched", "scan_id", id, "error", err)
	}
}

func (s *scanRoutes) listScans(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserIDFromRequest(r)
	if err != nil {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit := defaultScanListSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	scans, err := database.ListScanRequests(userID, limit)
	if err != nil {
		log.Error("Failed to list scans", "user_id", userID, "error", err)
		writeError(w, "Failed to list scans", http.StatusInternalServerError)
		return
	}

	out := make([]dto.ScanSummary, 0, len(scans))
	for _, scan := range scans {
		out = append(out, toScanSummary(scan))
	}
	writeJSON(w, http.StatusOK, out)
}

func toScanSummary(req domain.ScanRequest) dto.ScanSummary {
	return dto.ScanSummary{
		ID:        req.ID,
		Target:    req.Target,
		IsIP:      req.IsIP,
		Warnings:  []string(req.Warnings),
		Status:    req.Status,
		CreatedAt: req.CreatedAt,
	}
}
