package models

import (
	"time"

	"github.com/google/uuid"
)

// PlatformAccountID is the system account credited/debited for
// credit purchases and bonuses.
var PlatformAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// StartingCreditBalance is granted to every new user at registration.
const StartingCreditBalance = 50

// User verification and account status enums.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountInactive  AccountStatus = "inactive"
)

// User is a marketplace participant. CreditBalance is a materialized cache
// of the transaction ledger and is mutated only by the ledger service.
type User struct {
	ID                 uuid.UUID          `json:"id"`
	Email              string             `json:"email"`
	PasswordHash       string             `json:"-"`
	Name               string             `json:"name"`
	Bio                string             `json:"bio,omitempty"`
	Location           string             `json:"location,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	AccountStatus      AccountStatus      `json:"account_status"`
	CreditBalance      int                `json:"credit_balance"`
	Rating             float64            `json:"rating"`
	CompletedTasks     int                `json:"completed_tasks"`
	ResponseTimeHours  float64            `json:"response_time_hours"`
	CompletionRate     float64            `json:"completion_rate"`
	IsAvailable        bool               `json:"is_available"`
	IsSystemAccount    bool               `json:"is_system_account"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}
