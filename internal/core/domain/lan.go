package domain

import "time"

// LanRecord holds the local-network addresses a user has reported.
// The first address is the display-preferred one.
type LanRecord struct {
	UserID      UserID
	DisplayName string
	Addresses   []string
	LastUpdated time.Time
}

// LanPeer is one subnet match returned by a LAN scan.
type LanPeer struct {
	ID   UserID `json:"id"`
	Name string `json:"name"`
	IP   string `json:"ip"`
}
