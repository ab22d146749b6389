package domain

// User is the read-only slice of the account directory the engine needs:
// who to email and the renter's on-file return address.
type User struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Address *Address `json:"address,omitempty"`
}
