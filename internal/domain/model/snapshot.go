package model

// Snapshot is one consistent view of every collection. Snapshots are
// immutable once published: writers build a new one instead of editing
// slices in place.
type Snapshot struct {
	Records       []PerformanceRecord `json:"records"`
	Calls         []CallRecord        `json:"calls"`
	Queries       []UserQuery         `json:"queries"`
	RetailerTags  []RetailerTag       `json:"retailerTags"`
	ComplaintTags []string            `json:"complaintTags"`
	Accounts      []BranchAccount     `json:"accounts"`
	Users         []User              `json:"users"`
}

// Len returns the number of items in collection c.
func (s *Snapshot) Len(c Collection) int {
	if s == nil {
		return 0
	}
	switch c {
	case CollectionRecords:
		return len(s.Records)
	case CollectionCalls:
		return len(s.Calls)
	case CollectionQueries:
		return len(s.Queries)
	case CollectionRetailerTags:
		return len(s.RetailerTags)
	case CollectionComplaintTags:
		return len(s.ComplaintTags)
	case CollectionAccounts:
		return len(s.Accounts)
	case CollectionUsers:
		return len(s.Users)
	}
	return 0
}

// Part returns the slice backing collection c, or nil for an unknown key.
func (s *Snapshot) Part(c Collection) any {
	switch c {
	case CollectionRecords:
		return s.Records
	case CollectionCalls:
		return s.Calls
	case CollectionQueries:
		return s.Queries
	case CollectionRetailerTags:
		return s.RetailerTags
	case CollectionComplaintTags:
		return s.ComplaintTags
	case CollectionAccounts:
		return s.Accounts
	case CollectionUsers:
		return s.Users
	}
	return nil
}

// PartPtr returns a pointer to the slice backing collection c, suitable as a
// decode target, or nil for an unknown key.
func (s *Snapshot) PartPtr(c Collection) any {
	switch c {
	case CollectionRecords:
		return &s.Records
	case CollectionCalls:
		return &s.Calls
	case CollectionQueries:
		return &s.Queries
	case CollectionRetailerTags:
		return &s.RetailerTags
	case CollectionComplaintTags:
		return &s.ComplaintTags
	case CollectionAccounts:
		return &s.Accounts
	case CollectionUsers:
		return &s.Users
	}
	return nil
}

// Valid reports whether c names a known collection.
func (c Collection) Valid() bool {
	for _, k := range Collections {
		if c == k {
			return true
		}
	}
	return false
}
