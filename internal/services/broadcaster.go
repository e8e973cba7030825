package services

import "plinko-backend/internal/models"

// Broadcaster pushes results to connected clients. Calls happen after the
// account lock is released and must never block settlement.
type Broadcaster interface {
	BroadcastPlayResult(userID string, result *models.PlayResult)
	BroadcastJackpot(username string, amount int64)
}
