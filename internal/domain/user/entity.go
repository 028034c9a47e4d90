package user

import "time"

// User is an account record. Only DisplayName ever leaves the server through
// the user directory publication; the rest stays internal.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) DocID() string { return u.ID }

// Directory is the field-level projection published to clients.
type Directory struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

func (d *Directory) DocID() string { return d.ID }

// DirectoryView projects a user down to its public fields.
func (u *User) DirectoryView() *Directory {
	return &Directory{ID: u.ID, DisplayName: u.DisplayName}
}
