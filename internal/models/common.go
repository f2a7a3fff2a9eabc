// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	UserRoleBuyer  UserRole = "buyer"
	UserRoleSeller UserRole = "seller"
	UserRoleAdmin  UserRole = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type ItemStatus string

const (
	ItemStatusDraft     ItemStatus = "draft"
	ItemStatusActive    ItemStatus = "active"
	ItemStatusSuspended ItemStatus = "suspended"
)

type PurchaseStatus string

const (
	PurchaseStatusPendingPayment    PurchaseStatus = "pending_payment"
	PurchaseStatusPaymentProcessing PurchaseStatus = "payment_processing"
	PurchaseStatusInEscrow          PurchaseStatus = "in_escrow"
	PurchaseStatusCompleted         PurchaseStatus = "completed"
	PurchaseStatusCancelled         PurchaseStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s PurchaseStatus) IsTerminal() bool {
	return s == PurchaseStatusCompleted || s == PurchaseStatusCancelled
}

type EscrowStatus string

const (
	EscrowStatusHolding  EscrowStatus = "holding"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusDisputed EscrowStatus = "disputed"
)

type LicenseCode string

const (
	LicenseCodePersonal   LicenseCode = "personal"
	LicenseCodeCommercial LicenseCode = "commercial"
	LicenseCodeExtended   LicenseCode = "extended"
	LicenseCodeOpenSource LicenseCode = "open_source"
)

type ProjectStatus string

const (
	ProjectStatusPublished ProjectStatus = "published"
	ProjectStatusHidden    ProjectStatus = "hidden"
)

type VoteValue int

const (
	VoteUp   VoteValue = 1
	VoteDown VoteValue = -1
)
