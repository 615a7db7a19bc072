package reward

import (
	"errors"
	"time"
)

var (
	ErrRewardNotFound    = errors.New("Reward not found")
	ErrInventoryNotFound = errors.New("Inventory item not found")
	ErrNotEnoughXP       = errors.New("Not enough XP to redeem")
	ErrAlreadyUsed       = errors.New("Reward already used")
	ErrInvalidReward     = errors.New("invalid reward")
)

// StoreItem is a reward on offer.
type StoreItem struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"reward_name" gorm:"column:reward_name;not null;index"`
	XPCost    int       `json:"xp_cost" gorm:"not null"`
	CreatedAt time.Time `json:"-"`
}

func (StoreItem) TableName() string { return "reward_store" }

// LogEntry records one redemption. The sum of XPCost over the log is the XP spent.
type LogEntry struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DateRedeemed time.Time `json:"date_redeemed" gorm:"index"`
	RewardName   string    `json:"reward_name" gorm:"not null"`
	XPCost       int       `json:"xp_cost" gorm:"not null"`
}

func (LogEntry) TableName() string { return "reward_log" }

// InventoryItem is a redeemed reward waiting to be used.
type InventoryItem struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RewardName   string     `json:"reward_name" gorm:"not null"`
	XPCost       int        `json:"xp_cost" gorm:"not null"`
	DateRedeemed time.Time  `json:"date_redeemed" gorm:"index"`
	Used         bool       `json:"used" gorm:"not null;default:false"`
	UsedAt       *time.Time `json:"used_at"`
}

func (InventoryItem) TableName() string { return "reward_inventory" }

type Summary struct {
	TotalEarned int `json:"total_earned"`
	TotalSpent  int `json:"total_spent"`
	Balance     int `json:"balance"`
}

// RedeemInput names the reward by id or, failing that, by name.
type RedeemInput struct {
	RewardID   string `json:"reward_id,omitempty"`
	RewardName string `json:"reward_name,omitempty"`
}

func DefaultStore() []StoreItem {
	return []StoreItem{
		{Name: "1 Hour of Movie", XPCost: 100},
		{Name: "$1 Credit", XPCost: 25},
		{Name: "1 Hour of Gaming", XPCost: 100},
		{Name: "1 Hour of Scrolling", XPCost: 100},
	}
}
