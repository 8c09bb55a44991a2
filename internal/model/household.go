package model

import "slices"

type Household struct {
	ID           string   `json:"id"`
	DogName      string   `json:"dogName"`
	InviteTokens []string `json:"inviteTokens"`
	DogAgeMonths int      `json:"dogAgeMonths"`
	DogPhotoURL  string   `json:"dogPhotoUrl"`
}

// HasInvite reports whether token is a currently valid join code.
func (h Household) HasInvite(token string) bool {
	return token != "" && slices.Contains(h.InviteTokens, token)
}

// PetProfile is a partial update of the household pet fields. Nil fields
// are left unchanged.
type PetProfile struct {
	DogName      *string `json:"dogName"`
	DogAgeMonths *int    `json:"dogAgeMonths" validate:"omitempty,gte=0,lte=600"`
	DogPhotoURL  *string `json:"dogPhotoUrl" validate:"omitempty,max=2048"`
}

func (p PetProfile) Apply(h *Household) {
	if p.DogName != nil {
		h.DogName = *p.DogName
	}
	if p.DogAgeMonths != nil {
		h.DogAgeMonths = *p.DogAgeMonths
	}
	if p.DogPhotoURL != nil {
		h.DogPhotoURL = *p.DogPhotoURL
	}
}
