// internal/models/user.go
package models

import (
	"database/sql/driver"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

type User struct {
	BaseModel
	Email                 string                                    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash          string                                    `json:"-" gorm:"size:255;not null"`
	Name                  string                                    `json:"name" gorm:"size:255;not null"`
	Role                  UserRole                                  `json:"role" gorm:"type:varchar(20);default:'consumer';index"`
	Organization          string                                    `json:"organization,omitempty" gorm:"size:255"`
	HederaAccountID       *string                                   `json:"hederaAccountId,omitempty" gorm:"uniqueIndex;size:64"`
	IsVerified            bool                                      `json:"isVerified" gorm:"default:false"`
	VerificationDocuments datatypes.JSONSlice[VerificationDocument] `json:"verificationDocuments" gorm:"type:jsonb"`
	Profile               UserProfile                               `json:"profile" gorm:"type:jsonb"`
	Preferences           UserPreferences                           `json:"preferences" gorm:"type:jsonb"`
	LastLoginAt           *time.Time                                `json:"lastLoginAt,omitempty"`
}

type VerificationDocument struct {
	Type       string    `json:"type" validate:"required,oneof=business_license certification identity_document"`
	URL        string    `json:"url" validate:"required,url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
}

type UserProfile struct {
	Phone       string  `json:"phone,omitempty"`
	Address     Address `json:"address"`
	Website     string  `json:"website,omitempty"`
	Description string  `json:"description,omitempty"`
	Logo        string  `json:"logo,omitempty"`
}

func (p UserProfile) Value() (driver.Value, error) { return jsonValue(p) }

func (p *UserProfile) Scan(value interface{}) error {
	if value == nil {
		*p = UserProfile{}
		return nil
	}
	return scanJSON(value, p)
}

type NotificationPreferences struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
}

type UserPreferences struct {
	Notifications NotificationPreferences `json:"notifications"`
	Language      string                  `json:"language"`
	Timezone      string                  `json:"timezone"`
}

func DefaultPreferences() UserPreferences {
	return UserPreferences{
		Notifications: NotificationPreferences{Email: true, Push: true},
		Language:      "en",
		Timezone:      "UTC",
	}
}

func (p UserPreferences) Value() (driver.Value, error) { return jsonValue(p) }

func (p *UserPreferences) Scan(value interface{}) error {
	if value == nil {
		*p = DefaultPreferences()
		return nil
	}
	return scanJSON(value, p)
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// Clone returns a copy that shares no mutable state with u.
func (u User) Clone() User {
	out := u
	out.HederaAccountID = cloneString(u.HederaAccountID)
	out.LastLoginAt = cloneTime(u.LastLoginAt)
	if u.VerificationDocuments != nil {
		out.VerificationDocuments = append(datatypes.JSONSlice[VerificationDocument](nil), u.VerificationDocuments...)
	}
	return out
}

// UserSummary is the public projection of a user used when expanding references.
type UserSummary struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Organization string       `json:"organization,omitempty"`
	Role         UserRole     `json:"role,omitempty"`
	Profile      *UserProfile `json:"profile,omitempty"`
}

func (u *User) Summary(withProfile bool) *UserSummary {
	s := &UserSummary{
		ID:           u.ID.String(),
		Name:         u.Name,
		Organization: u.Organization,
		Role:         u.Role,
	}
	if withProfile {
		profile := u.Profile
		s.Profile = &profile
	}
	return s
}
