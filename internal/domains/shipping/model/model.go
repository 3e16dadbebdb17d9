package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Carrier string

const (
	CarrierFedEx Carrier = "FEDEX"
	CarrierDHL   Carrier = "DHL"
)

type AccountStatus string

const (
	AccountActive      AccountStatus = "ACTIVE"
	AccountNeedsReauth AccountStatus = "NEEDS_REAUTH"
	AccountInactive    AccountStatus = "INACTIVE"
)

// ErrAccountNotFound covers missing and cross-tenant accounts alike.
var ErrAccountNotFound = errors.New("shipping account not found")

// Credentials is the decrypted payload of the account's encrypted blob.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ShippingAccount holds per-tenant carrier credentials. The credentials are
// stored envelope-encrypted and transparently decrypted by the repository.
type ShippingAccount struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID string        `json:"organization_id"`
	Carrier        Carrier       `json:"carrier"`
	AccountNumber  string        `json:"account_number"`
	TestMode       bool          `json:"test_mode"`
	Credentials    Credentials   `json:"-"`
	Status         AccountStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
