// Package domain defines the persistence models for roommate profiles,
// matches, direct messages, and notifications. These types are mapped with
// GORM and form the core data layer of the application.
package domain

import (
	"encoding/json"
	"time"
)

// Match lifecycle states. A match starts pending and transitions exactly once
// to accepted or rejected; both are terminal.
const (
	MatchPending  = "pending"
	MatchAccepted = "accepted"
	MatchRejected = "rejected"
)

// Notification kinds stored in the inbox.
const (
	NotificationKindMessage = "message"
	NotificationKindMatch   = "match"
	NotificationKindSystem  = "system"
)

// MessageKindText is the default kind for plain text messages. Other values
// are accepted as opaque media markers (e.g. "image").
const MessageKindText = "text"

// Profile holds the read-only user attributes consumed by candidate scoring
// and conversation summaries. The ID is the opaque identifier supplied by the
// identity provider; this service never manages credentials.
//
// Habits and Interests are stored as JSON-encoded string arrays in TEXT
// columns. Malformed content degrades to the empty set rather than erroring,
// so a single bad profile can never break scoring.
type Profile struct {
	ID         string    `json:"id"         gorm:"type:varchar(64);primaryKey"`
	Name       string    `json:"name"       gorm:"type:varchar(100);not null"`
	Age        int       `json:"age"        gorm:"not null"`
	Gender     string    `json:"gender"     gorm:"type:varchar(20);index"`
	Occupation string    `json:"occupation" gorm:"type:varchar(100)"`
	Budget     string    `json:"budget"     gorm:"type:varchar(50)"` // raw, e.g. "8000" or "8k"
	Habits     string    `json:"-"          gorm:"type:text"`
	Interests  string    `json:"-"          gorm:"type:text"`
	Bio        string    `json:"bio"        gorm:"type:text"`
	Location   string    `json:"location"   gorm:"type:varchar(100)"`
	AvatarURL  string    `json:"avatar_url" gorm:"type:varchar(200)"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// HabitTags decodes the habits column. Malformed JSON yields nil.
func (p *Profile) HabitTags() []string { return decodeTags(p.Habits) }

// InterestTags decodes the interests column. Malformed JSON yields nil.
func (p *Profile) InterestTags() []string { return decodeTags(p.Interests) }

func decodeTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	return tags
}

// Match links two users in a roommate match request. The pair is stored in
// canonical order (UserAID < UserBID) so that (A,B) and (B,A) collide on the
// ux_match_pair unique index; that index, not the application-level existence
// check, is the duplicate-match correctness guarantee.
//
// RequesterID records which participant initiated the request; it is always
// one of UserAID/UserBID.
type Match struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	UserAID     string    `json:"user_a_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_match_pair,priority:1;index:idx_match_user_a"`
	UserBID     string    `json:"user_b_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_match_pair,priority:2;index:idx_match_user_b"`
	RequesterID string    `json:"requester_id" gorm:"type:varchar(64);not null"`
	Status      string    `json:"status"       gorm:"type:varchar(20);not null;default:'pending';check:status IN ('pending','accepted','rejected')"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Match.
func (Match) TableName() string { return "matches" }

// Involves reports whether userID is one of the two participants.
func (m *Match) Involves(userID string) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// Counterpart returns the other participant relative to userID. It returns ""
// when userID is not a participant.
func (m *Match) Counterpart(userID string) string {
	switch userID {
	case m.UserAID:
		return m.UserBID
	case m.UserBID:
		return m.UserAID
	}
	return ""
}

// CanonicalPair orders two user identifiers so the lexically smaller one comes
// first. All unordered-pair keys (match rows, conversation grouping) use this.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Message is a single directed message between two users. The auto-increment
// ID doubles as the store-wide monotone sequence: ordering by
// (created_at, id) is deterministic even when timestamps collide.
//
// Rows are immutable except for the Read flag, which only ever flips
// false -> true.
type Message struct {
	ID         int64     `json:"id"          gorm:"primaryKey;autoIncrement"`
	SenderID   string    `json:"sender_id"   gorm:"type:varchar(64);not null;index:idx_msg_sender"`
	ReceiverID string    `json:"receiver_id" gorm:"type:varchar(64);not null;index:idx_msg_unread,priority:1"`
	Body       string    `json:"body"        gorm:"type:text;not null"`
	Kind       string    `json:"kind"        gorm:"type:varchar(20);not null;default:'text'"`
	Read       bool      `json:"read"        gorm:"not null;default:false;index:idx_msg_unread,priority:2"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// ConversationKey returns the canonical unordered pair identifying the thread
// this message belongs to.
func (m *Message) ConversationKey() (string, string) {
	return CanonicalPair(m.SenderID, m.ReceiverID)
}

// Notification is a durable inbox entry owned by a single user. Entries are
// created by the chat and matching flows, marked read by the owner, and
// removed only by explicit owner action.
type Notification struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_notif_owner,priority:1"`
	Title     string    `json:"title"      gorm:"type:varchar(200);not null"`
	Body      string    `json:"body"       gorm:"type:text;not null"`
	Kind      string    `json:"kind"       gorm:"type:varchar(50);not null"`
	Read      bool      `json:"read"       gorm:"not null;default:false;index:idx_notif_owner,priority:2"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }
