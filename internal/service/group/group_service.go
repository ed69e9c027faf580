// Package groupsvc implements group CRUD, membership, and the
// owner/admin/member permission table. Grounded on the original
// GroupService's eight operations and permission rules.
package groupsvc

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"duplexchat/internal/models"
	"duplexchat/internal/store"
)

var (
	ErrInvalidInput         = errors.New("groupsvc: owner_id and name are required")
	ErrGroupNotFound        = errors.New("groupsvc: group not found")
	ErrNotInGroup           = errors.New("groupsvc: user not in group")
	ErrAlreadyMember        = errors.New("groupsvc: user already in group")
	ErrOwnerCannotLeave     = errors.New("groupsvc: owner cannot leave group, must dissolve instead")
	ErrCannotKickOwner      = errors.New("groupsvc: cannot kick owner")
	ErrAdminCannotKickAdmin = errors.New("groupsvc: admin cannot kick another admin")
	ErrPermissionDenied     = errors.New("groupsvc: permission denied")
	ErrOwnerOnly            = errors.New("groupsvc: only owner can perform this action")
	ErrCannotChangeOwner    = errors.New("groupsvc: cannot change owner role")
)

// Service is the group collaborator named in spec.md §4.6.
type Service struct {
	db *gorm.DB
}

// NewService wraps an open store handle.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create makes ownerID the sole owner of a fresh group, also
// inserting them as a member, all in one transaction.
func (s *Service) Create(ownerID, name string) (*models.Group, error) {
	if ownerID == "" || name == "" {
		return nil, ErrInvalidInput
	}

	group := &models.Group{GroupID: uuid.NewString(), Name: name, OwnerID: ownerID}
	err := store.Transact(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		member := &models.GroupMember{GroupID: group.GroupID, UserID: ownerID, Role: models.RoleOwner}
		return tx.Create(member).Error
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// Join adds userID as a plain member, failing if they're already in
// the group or the group doesn't exist.
func (s *Service) Join(userID, groupID string) error {
	if err := s.groupExists(groupID); err != nil {
		return err
	}
	if _, err := s.getUserRole(userID, groupID); err == nil {
		return ErrAlreadyMember
	} else if !errors.Is(err, ErrNotInGroup) {
		return err
	}
	member := &models.GroupMember{GroupID: groupID, UserID: userID, Role: models.RoleMember}
	return s.db.Create(member).Error
}

// Leave removes userID from groupID. The owner must dissolve the
// group instead of leaving it.
func (s *Service) Leave(userID, groupID string) error {
	role, err := s.getUserRole(userID, groupID)
	if err != nil {
		return err
	}
	if role == models.RoleOwner {
		return ErrOwnerCannotLeave
	}
	return s.db.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{}).Error
}

// Rename changes the group's display name; actor must be owner or admin.
func (s *Service) Rename(actorID, groupID, newName string) error {
	if _, err := s.requireOwnerOrAdmin(actorID, groupID); err != nil {
		return err
	}
	return s.db.Model(&models.Group{}).Where("group_id = ?", groupID).Update("name", newName).Error
}

// Kick removes targetUserID from the group. Owner or admin may kick;
// nobody may kick the owner; an admin may not kick another admin.
func (s *Service) Kick(actorID, groupID, targetUserID string) error {
	isOwner, err := s.requireOwnerOrAdmin(actorID, groupID)
	if err != nil {
		return err
	}
	targetRole, err := s.getUserRole(targetUserID, groupID)
	if err != nil {
		return err
	}
	if targetRole == models.RoleOwner {
		return ErrCannotKickOwner
	}
	if !isOwner && targetRole == models.RoleAdmin {
		return ErrAdminCannotKickAdmin
	}
	return s.db.Where("group_id = ? AND user_id = ?", groupID, targetUserID).Delete(&models.GroupMember{}).Error
}

// Dissolve is owner-only and cascades: message targets for the
// group's messages, then the messages, then the members, then the
// group itself, all in one transaction.
func (s *Service) Dissolve(actorID, groupID string) error {
	isOwner, err := s.requireOwnerOrAdmin(actorID, groupID)
	if err != nil {
		return err
	}
	if !isOwner {
		return ErrOwnerOnly
	}

	return store.Transact(s.db, func(tx *gorm.DB) error {
		var messageIDs []uint64
		if err := tx.Model(&models.Message{}).
			Where("conversation_type = ? AND conversation_id = ?", models.ConversationGroup, groupID).
			Pluck("message_id", &messageIDs).Error; err != nil {
			return err
		}
		if len(messageIDs) > 0 {
			if err := tx.Where("message_id IN ?", messageIDs).Delete(&models.MessageTarget{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("conversation_type = ? AND conversation_id = ?", models.ConversationGroup, groupID).
			Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		return tx.Where("group_id = ?", groupID).Delete(&models.Group{}).Error
	})
}

// SetAdmin promotes or demotes targetUserID. Owner-only; the owner's
// own role is immutable.
func (s *Service) SetAdmin(actorID, groupID, targetUserID string, makeAdmin bool) error {
	isOwner, err := s.requireOwnerOrAdmin(actorID, groupID)
	if err != nil {
		return err
	}
	if !isOwner {
		return ErrOwnerOnly
	}
	targetRole, err := s.getUserRole(targetUserID, groupID)
	if err != nil {
		return err
	}
	if targetRole == models.RoleOwner {
		return ErrCannotChangeOwner
	}
	newRole := models.RoleMember
	if makeAdmin {
		newRole = models.RoleAdmin
	}
	return s.db.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, targetUserID).
		Update("role", newRole).Error
}

// Members returns every user_id in the group, for dispatcher fanout.
func (s *Service) Members(groupID string) ([]string, error) {
	var members []models.GroupMember
	if err := s.db.Where("group_id = ?", groupID).Find(&members).Error; err != nil {
		return nil, err
	}
	userIDs := make([]string, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	return userIDs, nil
}

// UserRole returns userID's role in groupID, for dispatcher permission
// checks outside the service's own operations.
func (s *Service) UserRole(userID, groupID string) (models.GroupRole, error) {
	return s.getUserRole(userID, groupID)
}

func (s *Service) groupExists(groupID string) error {
	var count int64
	if err := s.db.Model(&models.Group{}).Where("group_id = ?", groupID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrGroupNotFound
	}
	return nil
}

func (s *Service) getUserRole(userID, groupID string) (models.GroupRole, error) {
	var member models.GroupMember
	err := s.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotInGroup
	}
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func (s *Service) requireOwnerOrAdmin(userID, groupID string) (isOwner bool, err error) {
	role, err := s.getUserRole(userID, groupID)
	if err != nil {
		return false, err
	}
	if role == models.RoleOwner {
		return true, nil
	}
	if role == models.RoleAdmin {
		return false, nil
	}
	return false, ErrPermissionDenied
}
