package model

import "time"

// MaxRetailersPerUser caps how many retailers one user may be tagged with.
const MaxRetailersPerUser = 3

// Retailers lists the selectable retail channels.
var Retailers = []string{
	"Myntra",
	"Nykaa",
	"Flipkart",
	"Amazon",
	"Truemeds",
	"Dot&Key",
	"Ajio",
	"OctaFX",
	"Scapia",
	"Rio",
	"FirstCry",
	"Cadbury",
	"Reliance Digital",
	"Other",
}

// IsRetailer reports whether name is one of Retailers.
func IsRetailer(name string) bool {
	for _, r := range Retailers {
		if r == name {
			return true
		}
	}
	return false
}

// RetailerTag associates a user with one to three retail channels.
type RetailerTag struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Retailers []string  `json:"retailers"`
	Timestamp time.Time `json:"timestamp"`
	CreatedBy string    `json:"createdBy,omitempty"`
}
