// internal/models/activity.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityLog records one mutating HTTP request.
type ActivityLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"userId,omitempty" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:150;not null;index"`
	ResourceType string     `json:"resourceType" gorm:"size:50;not null;index"`
	ResourceID   *uuid.UUID `json:"resourceId,omitempty" gorm:"type:uuid;index"`
	StatusCode   int        `json:"statusCode"`
	RequestBody  JSONB      `json:"requestBody,omitempty" gorm:"type:jsonb"`
	IPAddress    string     `json:"ipAddress" gorm:"size:45"`
	UserAgent    string     `json:"userAgent" gorm:"type:text"`
}

type NotificationType string

const (
	NotificationCredentialSubmitted NotificationType = "credential_submitted"
	NotificationCredentialVerified  NotificationType = "credential_verified"
	NotificationCredentialRejected  NotificationType = "credential_rejected"
	NotificationCredentialRevoked   NotificationType = "credential_revoked"
	NotificationCredentialExpired   NotificationType = "credential_expired"
	NotificationAccountVerified     NotificationType = "account_verified"
)

type Notification struct {
	BaseModel
	UserID              uuid.UUID        `json:"userId" gorm:"type:uuid;not null;index"`
	Type                NotificationType `json:"type" gorm:"type:varchar(50);not null;index"`
	Title               string           `json:"title" gorm:"size:255;not null"`
	Message             string           `json:"message" gorm:"type:text;not null"`
	RelatedResourceType string           `json:"relatedResourceType,omitempty" gorm:"size:50"`
	RelatedResourceID   *uuid.UUID       `json:"relatedResourceId,omitempty" gorm:"type:uuid"`
	ReadAt              *time.Time       `json:"readAt,omitempty"`
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
