package domain

import (
	"strconv"
	"strings"
	"time"
)

// User is the identity returned by the auth endpoints.
type User struct {
	ID                 int64     `json:"id"`
	Username           string    `json:"username"`
	Email              string    `json:"email"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	Phone              string    `json:"phone,omitempty"`
	AvatarURL          *string   `json:"avatar_url,omitempty"`
	IsPhonePrivate     bool      `json:"is_phone_private"`
	IsNamePrivate      bool      `json:"is_name_private"`
	IsFirstNamePrivate bool      `json:"is_first_name_private"`
	IsLastNamePrivate  bool      `json:"is_last_name_private"`
	IsEmailPrivate     bool      `json:"is_email_private"`
	IsStaff            bool      `json:"is_staff"`
	IsSuperuser        bool      `json:"is_superuser"`
	Bio                string    `json:"bio,omitempty"`
	Instagram          string    `json:"instagram,omitempty"`
	Telegram           string    `json:"telegram,omitempty"`
	YouTube            string    `json:"youtube,omitempty"`
	VK                 string    `json:"vk,omitempty"`
	InstagramURL       *string   `json:"instagram_url,omitempty"` // derived server-side
	TelegramURL        *string   `json:"telegram_url,omitempty"`
	YouTubeURL         *string   `json:"youtube_url,omitempty"`
	VKURL              *string   `json:"vk_url,omitempty"`
	Cars               []Car     `json:"cars,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// DisplayName prefers the visible full name and falls back to the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.IsNamePrivate {
		return u.Username
	}
	var parts []string
	if u.FirstName != "" && !u.IsFirstNamePrivate {
		parts = append(parts, u.FirstName)
	}
	if u.LastName != "" && !u.IsLastNamePrivate {
		parts = append(parts, u.LastName)
	}
	if len(parts) == 0 {
		return u.Username
	}
	return strings.Join(parts, " ")
}

// CanModerate reports whether the user may pin or lock forum topics.
func (u *User) CanModerate() bool {
	return u != nil && (u.IsStaff || u.IsSuperuser)
}

// Car is a vehicle in a user's garage.
type Car struct {
	ID              int64      `json:"id"`
	Brand           string     `json:"brand"`
	Model           string     `json:"model"`
	Generation      string     `json:"generation,omitempty"`
	Year            int        `json:"year,omitempty"`
	LicensePlate    string     `json:"license_plate,omitempty"`
	VIN             string     `json:"vin,omitempty"`
	Color           string     `json:"color,omitempty"`
	PhotoURL        *string    `json:"photo_url,omitempty"`
	PrimaryPhotoURL *string    `json:"primary_photo_url,omitempty"`
	Photos          []CarPhoto `json:"photos,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Title renders "Brand Model (Year)".
func (c Car) Title() string {
	s := strings.TrimSpace(c.Brand + " " + c.Model)
	if c.Generation != "" {
		s += " " + c.Generation
	}
	if c.Year > 0 {
		s += " (" + strconv.Itoa(c.Year) + ")"
	}
	return s
}

// CarPhoto is one photo of a car.
type CarPhoto struct {
	ID        int64     `json:"id"`
	PhotoURL  *string   `json:"photo_url,omitempty"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}
