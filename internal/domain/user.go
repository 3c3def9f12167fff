package domain

// User is a directory entry for a bidder. The engine treats users as opaque
// identifiers; the name exists only for notification and display purposes.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
