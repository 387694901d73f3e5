package domain

import (
	"github.com/google/uuid"
)

// UserProfile is the public projection of a user owned by the profile
// service. It is only ever read here.
type UserProfile struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	PictureURL  *string   `json:"picture_url,omitempty"`
	Role        string    `json:"role"`
}
