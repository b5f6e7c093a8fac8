package presence

import (
	"github.com/google/uuid"
)

// Record tracks the distinct users observed behind one IP address. The set
// grows monotonically: once a user is associated with an IP it stays there,
// the record is lifetime co-location evidence for reviewers.
//
// Version supports conditional updates. Concurrent logins from the same IP
// race on load→mutate→write, so writers must persist with a compare-and-swap
// on Version and retry on conflict.
type Record struct {
	IPAddress    string      `json:"ip_address"`
	UserIDs      []uuid.UUID `json:"user_ids"`
	IsSuspicious bool        `json:"is_suspicious"`
	Version      int64       `json:"version"`
}

// NewRecord starts a record for an IP with its first observed user.
func NewRecord(ip string, userID uuid.UUID) Record {
	return Record{
		IPAddress: ip,
		UserIDs:   []uuid.UUID{userID},
	}
}

// Contains reports whether the user is already associated with the IP.
func (r Record) Contains(userID uuid.UUID) bool {
	for _, id := range r.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Add associates a user with the IP. Duplicate observations are no-ops;
// returns true if the set changed.
func (r *Record) Add(userID uuid.UUID) bool {
	if r.Contains(userID) {
		return false
	}
	r.UserIDs = append(r.UserIDs, userID)
	return true
}

// Recompute refreshes the suspicion verdict against the given threshold and
// returns it. The verdict flips once the distinct-user count exceeds the
// threshold and is recomputed on every observation.
func (r *Record) Recompute(threshold int) bool {
	r.IsSuspicious = len(r.UserIDs) > threshold
	return r.IsSuspicious
}
