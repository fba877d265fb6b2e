package models

import (
	"encoding/json"
	"time"
)

// ActivityAction enumerates the actions recorded by the activity log.
type ActivityAction string

const (
	ActionCreate ActivityAction = "create"
	ActionUpdate ActivityAction = "update"
	ActionDelete ActivityAction = "delete"
	ActionLogin  ActivityAction = "login"
)

// ActivityLogEntry is a read-only, server generated audit record.
type ActivityLogEntry struct {
	ID        string          `json:"_id"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entityId,omitempty"`
	Action    ActivityAction  `json:"action"`
	User      Ref             `json:"user,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// DashboardStats holds per-entity counts. A nil count means that card failed to load.
type DashboardStats struct {
	Users         *int `json:"users"`
	Categories    *int `json:"categories"`
	Subcategories *int `json:"subcategories"`
	Items         *int `json:"items"`
}

// Dashboard is the aggregate shown on the landing screen.
type Dashboard struct {
	Stats       DashboardStats     `json:"stats"`
	Activity    []ActivityLogEntry `json:"activity"`
	Errors      []string           `json:"errors,omitempty"`
	GeneratedAt time.Time          `json:"generatedAt"`
}
