package models

import (
	"time"

	"github.com/uptrace/bun"
)

// APIKey maps a stored API key to its owning database user. Keys are
// provisioned out-of-band (by a database administrator) and looked up on
// every apikey-authenticated request that misses the session cache.
type APIKey struct {
	bun.BaseModel `bun:"table:api_keys,alias:ak"`

	APIKey    string     `bun:"api_key,pk"`
	Username  string     `bun:"username,notnull"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	ExpiresAt *time.Time `bun:"expires_at"`
}

// RoleMembership is one row of the database role-membership view used to
// map database privileges to API roles.
type RoleMembership struct {
	RoleID   int64  `bun:"roleid"`
	RoleName string `bun:"rolname"`
}

// AppStatus is the runtime status of one loading application, as
// recorded in the process-lock table. The connection cache sweep uses it
// to evict event clients whose application died.
type AppStatus struct {
	bun.BaseModel `bun:"table:cp_comp_proc_lock,alias:pl"`

	AppID     int64      `bun:"loading_application_id,pk"`
	PID       *int64     `bun:"pid"`
	Hostname  string     `bun:"hostname"`
	Heartbeat *time.Time `bun:"heartbeat"`
}
