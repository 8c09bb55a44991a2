package model

// User is a household member. Password holds the password secret, never
// the plain password once the account has logged in through this service.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	HouseholdID string `json:"householdId"`
	Token       string `json:"token"`
	IsAdmin     bool   `json:"isAdmin"`
}

// DisplayName is the name shown on the scoreboard.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
