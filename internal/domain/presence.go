package domain

// Presence is one row of the online snapshot. No transport fields here.
type Presence struct {
	ID       UserID `json:"user_id"`
	Username string `json:"username"`
	Busy     bool   `json:"busy"`
}
