package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"chat-relay/domain"
	"chat-relay/errors"
)

func openTestDirectory(t *testing.T) *DirectoryRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	directory := NewDirectoryRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug))
	require.NoError(t, directory.Migrate())
	return directory
}

func seedUser(t *testing.T, directory *DirectoryRepository, name string) domain.User {
	t.Helper()
	user := domain.User{
		ID:    uuid.NewString(),
		Email: name + "@example.com",
		Name:  name,
	}
	require.NoError(t, directory.db.Create(&user).Error)
	return user
}

func TestDirectoryRepository_FindUsers_Excludes_IDs(t *testing.T) {
	req := require.New(t)
	directory := openTestDirectory(t)
	ctx := context.Background()

	// Given three users
	alice := seedUser(t, directory, "alice")
	bob := seedUser(t, directory, "bob")
	carol := seedUser(t, directory, "carol")

	// When querying with two of them excluded
	users, err := directory.FindUsers(ctx, domain.UserFilter{
		ExcludeIDs: []string{alice.ID, bob.ID},
	})

	// Then only the third remains
	req.NoError(err)
	req.Len(users, 1)
	req.Equal(carol.ID, users[0].ID)
}

func TestDirectoryRepository_CreateThread_And_Read_Back_With_Profiles(t *testing.T) {
	req := require.New(t)
	directory := openTestDirectory(t)
	ctx := context.Background()

	alice := seedUser(t, directory, "alice")
	bob := seedUser(t, directory, "bob")

	// When a thread is created with both participants
	thread, err := directory.CreateThread(ctx)
	req.NoError(err)
	req.NotEmpty(thread.ID)
	req.NoError(directory.AddParticipants(ctx, thread.ID, []string{alice.ID, bob.ID}))

	// Then reading it back attaches the participant profiles
	found, err := directory.FindThread(ctx, thread.ID)
	req.NoError(err)
	req.Len(found.Participants, 2)
	for _, p := range found.Participants {
		req.NotNil(p.User)
		req.NotEmpty(p.User.Email)
	}
}

func TestDirectoryRepository_FindThread_Unknown_Returns_Sentinel(t *testing.T) {
	req := require.New(t)
	directory := openTestDirectory(t)

	_, err := directory.FindThread(context.Background(), uuid.NewString())

	req.ErrorIs(err, errors.ErrThreadNotFound)
}

func TestDirectoryRepository_AddParticipants_Rejects_Empty_List(t *testing.T) {
	req := require.New(t)
	directory := openTestDirectory(t)

	err := directory.AddParticipants(context.Background(), uuid.NewString(), nil)

	req.ErrorIs(err, errors.ErrEmptyParticipants)
}

func TestDirectoryRepository_SetLastMessage_Moves_Pointer_And_Activity(t *testing.T) {
	req := require.New(t)
	directory := openTestDirectory(t)
	ctx := context.Background()

	alice := seedUser(t, directory, "alice")
	bob := seedUser(t, directory, "bob")

	// Given two threads, the second created later
	older, err := directory.CreateThread(ctx)
	req.NoError(err)
	req.NoError(directory.AddParticipants(ctx, older.ID, []string{alice.ID, bob.ID}))

	time.Sleep(10 * time.Millisecond)
	newer, err := directory.CreateThread(ctx)
	req.NoError(err)
	req.NoError(directory.AddParticipants(ctx, newer.ID, []string{alice.ID, bob.ID}))

	// When a message lands in the older thread
	time.Sleep(10 * time.Millisecond)
	message := domain.Message{
		ID:          uuid.NewString(),
		ThreadID:    older.ID,
		SenderID:    alice.ID,
		Content:     "hello",
		MessageType: "text",
		CreatedAt:   time.Now().UTC(),
	}
	req.NoError(directory.CreateMessage(ctx, &message))
	req.NoError(directory.SetLastMessage(ctx, older.ID, message.ID))

	// Then listings put the older thread first with the message attached
	threads, err := directory.FindThreadsForUser(ctx, alice.ID)
	req.NoError(err)
	req.Len(threads, 2)
	req.Equal(older.ID, threads[0].ID)
	req.NotNil(threads[0].LastMessage)
	req.Equal("hello", threads[0].LastMessage.Content)
}

func TestDirectoryRepository_SetLastMessage_Unknown_Thread(t *testing.T) {
	req := require.New(t)
	directory := openTestDirectory(t)

	err := directory.SetLastMessage(context.Background(), uuid.NewString(), uuid.NewString())

	req.ErrorIs(err, errors.ErrThreadNotFound)
}

func TestDirectoryRepository_Thread_And_User_Lookups(t *testing.T) {
	req := require.New(t)
	directory := openTestDirectory(t)
	ctx := context.Background()

	alice := seedUser(t, directory, "alice")
	bob := seedUser(t, directory, "bob")
	carol := seedUser(t, directory, "carol")

	// Given alice chats with bob and with carol in separate threads
	thread1, err := directory.CreateThread(ctx)
	req.NoError(err)
	req.NoError(directory.AddParticipants(ctx, thread1.ID, []string{alice.ID, bob.ID}))
	thread2, err := directory.CreateThread(ctx)
	req.NoError(err)
	req.NoError(directory.AddParticipants(ctx, thread2.ID, []string{alice.ID, carol.ID}))

	// When listing alice's thread ids
	threadIDs, err := directory.ThreadIDsForUser(ctx, alice.ID)
	req.NoError(err)
	req.ElementsMatch([]string{thread1.ID, thread2.ID}, threadIDs)

	// And resolving who she already talks to
	contacts, err := directory.UserIDsInThreads(ctx, threadIDs, alice.ID)
	req.NoError(err)
	req.ElementsMatch([]string{bob.ID, carol.ID}, contacts)

	// And an empty thread list yields no contacts
	contacts, err = directory.UserIDsInThreads(ctx, nil, alice.ID)
	req.NoError(err)
	req.Nil(contacts)
}
