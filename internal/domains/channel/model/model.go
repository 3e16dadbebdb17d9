package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type ChannelType string

const (
	ChannelShopify     ChannelType = "SHOPIFY"
	ChannelWooCommerce ChannelType = "WOOCOMMERCE"
)

type ChannelStatus string

const (
	ChannelActive   ChannelStatus = "ACTIVE"
	ChannelInactive ChannelStatus = "INACTIVE"
)

// ErrChannelNotFound covers both missing channels and channels in another
// organization: callers cannot distinguish the two.
var ErrChannelNotFound = errors.New("channel not found")

// Channel is a storefront connection whose webhooks we verify.
type Channel struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID string        `json:"organization_id"`
	Type           ChannelType   `json:"type"`
	Status         ChannelStatus `json:"status"`
	WebhookSecret  string        `json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
