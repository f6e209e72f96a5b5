package domain

import "time"

// Registry is the per-deployment singleton that anchors the market collection.
// Admin is immutable after Initialize; NextMarketID is assigned strictly
// increasing from 1; VaultAccount is the custody account only the settlement
// engine may move funds out of.
type Registry struct {
	Admin        string
	VaultAccount string
	NextMarketID uint64
	CreatedAt    time.Time
}
