package user

import "strings"

// Actor is the authenticated caller as supplied by the auth layer. The role
// is resolved exactly once when the token is issued; this core never derives
// it from a mutable reference again.
type Actor struct {
	ID   string
	Role Role
}

// Valid reports whether the actor carries an ID and a known role.
func (a Actor) Valid() bool {
	return strings.TrimSpace(a.ID) != "" && a.Role.Valid()
}

// Contact groups the fields disclosed once a connect request settles.
type Contact struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	WhatsappNumber string `json:"whatsappNumber"`
}

// Profile is the directory view of a marketplace user.
type Profile struct {
	ID      string
	Role    Role
	Contact Contact
}
