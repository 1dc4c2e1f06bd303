package panel

import "time"

// Snapshot is the result of one automation pass, served by the status API.
type Snapshot struct {
	TakenAt time.Time       `json:"taken_at"`
	Stores  []StoreSnapshot `json:"stores"`
}

// StoreSnapshot is the per-store slice of a pass.
type StoreSnapshot struct {
	Store     string           `json:"store"`
	Claims    []ClaimStatus    `json:"claims,omitempty"`
	Questions []QuestionStatus `json:"questions,omitempty"`
	Errors    []string         `json:"errors,omitempty"`
}

// ClaimStatus describes one pending claim and what the pass did with it.
type ClaimStatus struct {
	ClaimID     string `json:"claim_id"`
	OrderNumber string `json:"order_number"`
	Items       int    `json:"items"`
	Approval    string `json:"approval,omitempty"`
}

// QuestionStatus describes one waiting question and what the pass did with
// it. At most one of RemainingDelay, Refusal, and Dispatch is set.
type QuestionStatus struct {
	ID             int64  `json:"id"`
	Product        string `json:"product"`
	Text           string `json:"text"`
	Handled        bool   `json:"handled"`
	RemainingDelay string `json:"remaining_delay,omitempty"`
	Refusal        string `json:"refusal,omitempty"`
	RefusalDetail  string `json:"refusal_detail,omitempty"`
	Dispatch       string `json:"dispatch,omitempty"`
}

// ForStore returns the slice of the snapshot belonging to one store.
func (s Snapshot) ForStore(name string) (StoreSnapshot, bool) {
	for _, ss := range s.Stores {
		if ss.Store == name {
			return ss, true
		}
	}
	return StoreSnapshot{}, false
}
