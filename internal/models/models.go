// Package models defines the GORM entities backing the relational
// store: users, groups and their membership, messages and their
// fanout targets, and files with their two-phase upload lifecycle.
package models

import "time"

// ConversationType distinguishes private chat from group chat
// addressing, used as the conversation_type discriminator on Message
// and File.
type ConversationType string

const (
	ConversationPrivate ConversationType = "private"
	ConversationGroup   ConversationType = "group"
)

// GroupRole is a GroupMember's permission tier within its group.
type GroupRole string

const (
	RoleOwner  GroupRole = "owner"
	RoleAdmin  GroupRole = "admin"
	RoleMember GroupRole = "member"
)

// User is never soft-deleted: register creates it, nothing destroys it.
type User struct {
	UserID       string `gorm:"type:varchar(64);primaryKey"`
	Nickname     string `gorm:"type:varchar(64);not null"`
	PasswordHash string `gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time
}

// Group is destroyed only by dissolution, which cascades to its
// members and messages in one transaction (see service/group).
type Group struct {
	GroupID   string `gorm:"type:varchar(64);primaryKey"`
	Name      string `gorm:"type:varchar(128);not null"`
	OwnerID   string `gorm:"type:varchar(64);not null;index"`
	CreatedAt time.Time
}

// GroupMember is unique on (GroupID, UserID); exactly one row per
// group carries RoleOwner.
type GroupMember struct {
	GroupID  string    `gorm:"type:varchar(64);primaryKey"`
	UserID   string    `gorm:"type:varchar(64);primaryKey;index"`
	Role     GroupRole `gorm:"type:varchar(16);not null"`
	JoinedAt time.Time
}

// Message's MessageID is the store's auto-increment primary key,
// which is what grounds spec.md's "monotonically increasing" id.
type Message struct {
	MessageID        uint64           `gorm:"primaryKey;autoIncrement"`
	ConversationType ConversationType `gorm:"type:varchar(16);not null;index:idx_message_conv,priority:1"`
	ConversationID   string           `gorm:"type:varchar(64);not null;index:idx_message_conv,priority:2"`
	SenderID         string           `gorm:"type:varchar(64);not null"`
	SenderNickname   string           `gorm:"type:varchar(64);not null"`
	Content          string           `gorm:"type:text;not null"`
	CreatedAt        time.Time
}

// MessageTarget is unique on (MessageID, UserID); written in the same
// transaction as its Message (invariant 1 in spec.md §3).
type MessageTarget struct {
	MessageID   uint64     `gorm:"primaryKey"`
	UserID      string     `gorm:"type:varchar(64);primaryKey;index:idx_msgtarget_user,priority:1"`
	DeliveredAt *time.Time `gorm:"index:idx_msgtarget_user,priority:2"`
}

// File is created when an upload is offered, alongside its FileUpload
// row; it is never deleted by this core (spec.md §3, §9 — no retention
// sweep).
type File struct {
	FileID            string           `gorm:"type:varchar(32);primaryKey"`
	UploaderID        string           `gorm:"type:varchar(64);not null"`
	UploaderNickname  string           `gorm:"type:varchar(64);not null"`
	ConversationType  ConversationType `gorm:"type:varchar(16);not null;index:idx_file_conv,priority:1"`
	ConversationID    string           `gorm:"type:varchar(64);not null;index:idx_file_conv,priority:2"`
	FileName          string           `gorm:"type:varchar(255);not null"`
	FileSize          int64            `gorm:"not null"`
	SHA256            string           `gorm:"type:varchar(64);not null"`
	StoragePath       string           `gorm:"type:varchar(512);not null"`
	CreatedAt         time.Time
}

// FileUpload exists iff its File is not yet finalized; its presence
// is the authoritative "still uploading" signal (spec.md §4.8).
type FileUpload struct {
	FileID       string `gorm:"type:varchar(32);primaryKey"`
	UploaderID   string `gorm:"type:varchar(64);not null"`
	TempPath     string `gorm:"type:varchar(512);not null"`
	UploadedSize int64  `gorm:"not null;default:0"`
	UpdatedAt    time.Time
}

// FileTarget is unique on (FileID, UserID); gates both downloadability
// and the offline file-notice spool.
type FileTarget struct {
	FileID      string     `gorm:"type:varchar(32);primaryKey"`
	UserID      string     `gorm:"type:varchar(64);primaryKey;index:idx_filetarget_user,priority:1"`
	DeliveredAt *time.Time `gorm:"index:idx_filetarget_user,priority:2"`
}

// All returns every model for AutoMigrate callers.
func All() []any {
	return []any{
		&User{},
		&Group{},
		&GroupMember{},
		&Message{},
		&MessageTarget{},
		&File{},
		&FileUpload{},
		&FileTarget{},
	}
}
