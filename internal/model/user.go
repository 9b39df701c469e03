package model

import "time"

// Role is the business role a user picks during profile completion.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleEmployee Role = "employee"
	RoleVendor   Role = "vendor"
	RoleOwner    Role = "owner"
)

// Valid reports whether the role is one of the supported business roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleEmployee, RoleVendor, RoleOwner:
		return true
	}
	return false
}

// Status represents a user's presence status.
type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusOffline Status = "offline"
)

// LifecycleState is the account lifecycle position derived from stored
// record fields; it is never persisted directly.
type LifecycleState string

const (
	StateNeedsProfile      LifecycleState = "needs_profile"
	StateNeedsVerification LifecycleState = "needs_verification"
	StateActive            LifecycleState = "active"
)

// User represents a user document in the users collection. The document id
// is the subject identifier assigned by the external identity provider.
type User struct {
	ID                        string      `bson:"_id"                          json:"id"`
	Email                     string      `bson:"email"                        json:"email"`
	FullName                  string      `bson:"full_name"                    json:"fullName"`
	AvatarURL                 string      `bson:"avatar_url"                   json:"avatarUrl"`
	GoogleID                  string      `bson:"google_id"                    json:"-"`
	Phone                     string      `bson:"phone"                        json:"phone,omitempty"`
	Role                      Role        `bson:"role"                         json:"role,omitempty"`
	BusinessRole              string      `bson:"business_role"                json:"businessRole,omitempty"`
	Verified                  bool        `bson:"verified"                     json:"isVerified"`
	VerificationCode          *string     `bson:"verification_code"            json:"-"`
	VerificationCodeExpiresAt *time.Time  `bson:"verification_code_expires_at" json:"-"`
	Status                    Status      `bson:"status"                       json:"status"`
	LastSeenAt                time.Time   `bson:"last_seen_at"                 json:"lastSeen"`
	Preferences               Preferences `bson:"preferences"                  json:"preferences"`
	Settings                  Settings    `bson:"settings"                     json:"settings"`
	CreatedAt                 time.Time   `bson:"created_at"                   json:"createdAt"`
	UpdatedAt                 time.Time   `bson:"updated_at"                   json:"updatedAt"`
}

// LifecycleState derives the account lifecycle position from the record:
// no role yet means the profile step is pending, an unverified email means
// the verification step is pending, anything else is an active account.
func (u *User) LifecycleState() LifecycleState {
	if u.Role == "" {
		return StateNeedsProfile
	}
	if !u.Verified {
		return StateNeedsVerification
	}
	return StateActive
}

// Preferences holds per-user notification and visibility preferences.
type Preferences struct {
	Theme               string `bson:"theme"                 json:"theme"`
	Notifications       bool   `bson:"notifications"         json:"notifications"`
	Sound               bool   `bson:"sound"                 json:"sound"`
	EmailNotifications  bool   `bson:"email_notifications"   json:"emailNotifications"`
	LastSeenVisibility  bool   `bson:"last_seen_visibility"  json:"lastSeenVisibility"`
	OnlineStatusVisible bool   `bson:"online_status_visible" json:"onlineStatusVisible"`
	ReadReceipts        bool   `bson:"read_receipts"         json:"readReceipts"`
}

// Settings holds per-user display settings.
type Settings struct {
	FontSize    string `bson:"font_size"    json:"fontSize"`
	DisplayMode string `bson:"display_mode" json:"displayMode"`
	AccentColor string `bson:"accent_color" json:"accentColor"`
}

// DefaultPreferences returns the preference block assigned to new accounts.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:               "system",
		Notifications:       true,
		Sound:               true,
		EmailNotifications:  true,
		LastSeenVisibility:  true,
		OnlineStatusVisible: true,
		ReadReceipts:        true,
	}
}

// DefaultSettings returns the display settings assigned to new accounts.
func DefaultSettings() Settings {
	return Settings{
		FontSize:    "medium",
		DisplayMode: "comfortable",
		AccentColor: "#2563EB",
	}
}
