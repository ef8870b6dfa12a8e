package repositories

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chat-relay/domain"
	"chat-relay/errors"
)

// DirectoryRepository is the read/write facade over the relational
// collaborator holding users, threads, participants and messages.
type DirectoryRepository struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewDirectoryRepository(db *gorm.DB, log *slog.Logger) *DirectoryRepository {
	return &DirectoryRepository{db: db, log: log}
}

// Migrate creates or updates the directory schema.
func (d *DirectoryRepository) Migrate() error {
	return d.db.AutoMigrate(
		&domain.User{},
		&domain.Thread{},
		&domain.Participant{},
		&domain.Message{},
	)
}

func (d *DirectoryRepository) FindUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	var users []domain.User
	query := d.db.WithContext(ctx)
	if len(filter.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", filter.ExcludeIDs)
	}
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("finding users: %w", err)
	}
	return users, nil
}

// FindThreadsForUser lists every thread the user participates in, newest
// activity first, with all participants (profiles attached) and the last
// message loaded. Callers strip the requesting user from the participant
// lists themselves.
func (d *DirectoryRepository) FindThreadsForUser(ctx context.Context, userID string) ([]domain.Thread, error) {
	var threads []domain.Thread
	err := d.db.WithContext(ctx).
		Joins("JOIN thread_participants tp ON tp.thread_id = threads.id AND tp.user_id = ?", userID).
		Preload("Participants.User").
		Preload("LastMessage").
		Order("threads.updated_at DESC").
		Find(&threads).Error
	if err != nil {
		return nil, fmt.Errorf("finding threads for user %s: %w", userID, err)
	}
	return threads, nil
}

func (d *DirectoryRepository) FindThread(ctx context.Context, threadID string) (*domain.Thread, error) {
	var thread domain.Thread
	err := d.db.WithContext(ctx).
		Preload("Participants.User").
		Preload("LastMessage").
		First(&thread, "id = ?", threadID).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrThreadNotFound
		}
		return nil, fmt.Errorf("finding thread %s: %w", threadID, err)
	}
	return &thread, nil
}

func (d *DirectoryRepository) CreateThread(ctx context.Context) (*domain.Thread, error) {
	thread := domain.Thread{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := d.db.WithContext(ctx).Create(&thread).Error; err != nil {
		return nil, fmt.Errorf("creating thread: %w", err)
	}
	return &thread, nil
}

func (d *DirectoryRepository) AddParticipants(ctx context.Context, threadID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return errors.ErrEmptyParticipants
	}
	participants := make([]domain.Participant, 0, len(userIDs))
	for _, userID := range userIDs {
		participants = append(participants, domain.Participant{
			ThreadID: threadID,
			UserID:   userID,
		})
	}
	if err := d.db.WithContext(ctx).Create(&participants).Error; err != nil {
		return fmt.Errorf("adding participants to thread %s: %w", threadID, err)
	}
	return nil
}

func (d *DirectoryRepository) CreateMessage(ctx context.Context, message *domain.Message) error {
	if err := d.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("creating message: %w", err)
	}
	return nil
}

// SetLastMessage moves the thread's last-message pointer. The update also
// touches updated_at, which drives the newest-activity ordering.
func (d *DirectoryRepository) SetLastMessage(ctx context.Context, threadID, messageID string) error {
	result := d.db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("id = ?", threadID).
		Update("last_message_id", messageID)
	if result.Error != nil {
		return fmt.Errorf("setting last message on thread %s: %w", threadID, result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrThreadNotFound
	}
	return nil
}

// ThreadIDsForUser lists the identifiers of every thread the user is in.
func (d *DirectoryRepository) ThreadIDsForUser(ctx context.Context, userID string) ([]string, error) {
	var threadIDs []string
	err := d.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("user_id = ?", userID).
		Distinct().
		Pluck("thread_id", &threadIDs).Error
	if err != nil {
		return nil, fmt.Errorf("listing threads of user %s: %w", userID, err)
	}
	return threadIDs, nil
}

// UserIDsInThreads lists the distinct users participating in any of the
// given threads, excluding one user (the requester).
func (d *DirectoryRepository) UserIDsInThreads(ctx context.Context, threadIDs []string, exclude string) ([]string, error) {
	if len(threadIDs) == 0 {
		return nil, nil
	}
	var userIDs []string
	err := d.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("thread_id IN ? AND user_id <> ?", threadIDs, exclude).
		Distinct().
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("listing users in threads: %w", err)
	}
	return userIDs, nil
}
