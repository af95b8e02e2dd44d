package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/videotube-accounts/internal/models"
	"github.com/pribylovaa/videotube-accounts/internal/storage"
	"github.com/pribylovaa/videotube-accounts/internal/storage/postgres/migrations"
)

// Интеграционные тесты поднимают PostgreSQL через testcontainers-go
// (postgres:16-alpine); схема создаётся встроенными миграциями в New.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// startPostgres — поднимает временный экземпляр PostgreSQL и возвращает хранилище.
// Если переменная окружения GO_TEST_INTEGRATION не установлена — тест пропускается.
func startPostgres(t *testing.T) *Storage {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	st, err := New(ctx, dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		st.Close()
		_ = c.Terminate(context.Background())
	})

	return st
}

func seedUser(t *testing.T, st *Storage, username string) *models.User {
	t.Helper()
	now := time.Now().UTC()
	u := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "User " + username,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.SaveUser(context.Background(), u))
	return u
}

func ptr(s string) *string { return &s }

func TestMigrations_Embedded(t *testing.T) {
	entries, err := migrations.FS.ReadDir(".")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Contains(t, names, "00001_init_users.sql")
	require.Contains(t, names, "00002_init_channels.sql")
}

func TestIntegration_SaveUser_And_Lookup(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	u := seedUser(t, st, "alice")

	got, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)
	require.WithinDuration(t, u.CreatedAt, got.CreatedAt, time.Second)

	got, err = st.UserByUsernameOrEmail(ctx, "alice", "")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	got, err = st.UserByUsernameOrEmail(ctx, "", "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = st.UserByUsernameOrEmail(ctx, "", "")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByID(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Повторное создание — конфликт уникальности.
	dup := &models.User{ID: uuid.New(), Username: "alice", Email: "x@example.com", PasswordHash: "h", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.ErrorIs(t, st.SaveUser(ctx, dup), storage.ErrAlreadyExists)
}

func TestIntegration_UpdateUserFields(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	u := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	got, err := st.UpdateUserFields(ctx, u.ID, models.UserFields{
		FullName:  ptr("Alice A."),
		AvatarURL: ptr("http://cdn/a.png"),
		AvatarKey: ptr("avatars/a.png"),
	})
	require.NoError(t, err)
	require.Equal(t, "Alice A.", got.FullName)
	require.Equal(t, "http://cdn/a.png", got.AvatarURL)
	require.Equal(t, "avatars/a.png", got.AvatarKey)
	require.Equal(t, u.Email, got.Email)
	require.Equal(t, "hash", got.PasswordHash)

	_, err = st.UpdateUserFields(ctx, u.ID, models.UserFields{Email: ptr(bob.Email)})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = st.UpdateUserFields(ctx, uuid.New(), models.UserFields{FullName: ptr("x")})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_RefreshToken_SetAndSwap(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	u := seedUser(t, st, "alice")
	require.NoError(t, st.SetRefreshToken(ctx, u.ID, "h1"))

	ok, err := st.SwapRefreshToken(ctx, u.ID, "h1", "h2")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.SwapRefreshToken(ctx, u.ID, "h1", "h3")
	require.NoError(t, err)
	require.False(t, ok)

	got, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "h2", got.RefreshTokenHash)

	require.NoError(t, st.SetRefreshToken(ctx, u.ID, ""))
	ok, err = st.SwapRefreshToken(ctx, u.ID, "", "h4")
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, st.SetRefreshToken(ctx, uuid.New(), "x"), storage.ErrNotFound)
	_, err = st.SwapRefreshToken(ctx, uuid.New(), "a", "b")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_SwapRefreshToken_ConcurrentExactlyOneWins(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	u := seedUser(t, st, "alice")
	require.NoError(t, st.SetRefreshToken(ctx, u.ID, "h0"))

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := st.SwapRefreshToken(ctx, u.ID, "h0", uuid.NewString()); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
}

func TestIntegration_Channels(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")
	carol := seedUser(t, st, "carol")

	require.NoError(t, st.Subscribe(ctx, bob.ID, alice.ID))
	require.NoError(t, st.Subscribe(ctx, carol.ID, alice.ID))
	require.NoError(t, st.Subscribe(ctx, alice.ID, carol.ID))
	require.ErrorIs(t, st.Subscribe(ctx, bob.ID, alice.ID), storage.ErrAlreadyExists)
	require.ErrorIs(t, st.Subscribe(ctx, bob.ID, uuid.New()), storage.ErrNotFound)

	p, err := st.ChannelProfile(ctx, "alice", bob.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, p.SubscribersCount)
	require.EqualValues(t, 1, p.SubscribedToCount)
	require.True(t, p.IsSubscribed)

	p, err = st.ChannelProfile(ctx, "alice", uuid.Nil)
	require.NoError(t, err)
	require.False(t, p.IsSubscribed)

	require.NoError(t, st.Unsubscribe(ctx, bob.ID, alice.ID))
	require.ErrorIs(t, st.Unsubscribe(ctx, bob.ID, alice.ID), storage.ErrNotFound)

	_, err = st.ChannelProfile(ctx, "ghost", uuid.Nil)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_WatchHistory(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	now := time.Now().UTC()
	v1 := models.Video{ID: uuid.New(), OwnerID: bob.ID, Title: "first", Duration: 90 * time.Second, CreatedAt: now, UpdatedAt: now}
	v2 := models.Video{ID: uuid.New(), OwnerID: bob.ID, Title: "second", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.PutVideo(ctx, v1))
	require.NoError(t, st.PutVideo(ctx, v2))

	require.NoError(t, st.RecordView(ctx, alice.ID, v2.ID))
	require.NoError(t, st.RecordView(ctx, alice.ID, v1.ID))
	require.NoError(t, st.RecordView(ctx, alice.ID, uuid.New()))
	require.ErrorIs(t, st.RecordView(ctx, uuid.New(), v1.ID), storage.ErrNotFound)

	got, err := st.WatchHistory(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "second", got[0].Title)
	require.Equal(t, "first", got[1].Title)
	require.Equal(t, 90*time.Second, got[1].Duration)
	require.Equal(t, "bob", got[0].Owner.Username)

	_, err = st.WatchHistory(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)
}
