package models

import "time"

type GuestUser struct {
	GuestUserID  string    `json:"id"`
	Name         string    `json:"name"`
	MobileNumber string    `json:"mobileNumber"`
	CreatedAt    time.Time `json:"createdAt"`
}
