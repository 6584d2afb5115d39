package auth

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	ImageRef     string
	CreatedAt    time.Time
}

// Identity is the subset of a user embedded in a token payload. It is a
// snapshot taken at login and stays fixed for the token's lifetime, so
// it can lag behind the stored user record. Callers that need current
// authorization state must re-resolve against storage.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserView is the projection of a user that may leave the service. The
// password digest is deliberately absent.
type UserView struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	ImageRef string `json:"userImg,omitempty"`
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Email: u.Email}
}

func (u User) View() UserView {
	return UserView{ID: u.ID, Username: u.Username, Email: u.Email, ImageRef: u.ImageRef}
}
