package models

// UserRef identifies a report recipient
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AccountRef identifies an account embedded in a budget row
type AccountRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
