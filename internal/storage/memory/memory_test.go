package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/videotube-accounts/internal/models"
	"github.com/pribylovaa/videotube-accounts/internal/storage"
)

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

func TestSaveUser_And_Lookup(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	u := seedUser(t, st, "alice")

	got, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Username, got.Username)

	got, err = st.UserByUsernameOrEmail(ctx, "alice", "")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	got, err = st.UserByUsernameOrEmail(ctx, "", "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	// Совпадение по любому из полей.
	got, err = st.UserByUsernameOrEmail(ctx, "nobody", "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = st.UserByUsernameOrEmail(ctx, "", "")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByID(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSaveUser_Duplicates(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	u := seedUser(t, st, "alice")

	dupName := &models.User{ID: uuid.New(), Username: "alice", Email: "other@example.com"}
	require.ErrorIs(t, st.SaveUser(ctx, dupName), storage.ErrAlreadyExists)

	dupEmail := &models.User{ID: uuid.New(), Username: "other", Email: u.Email}
	require.ErrorIs(t, st.SaveUser(ctx, dupEmail), storage.ErrAlreadyExists)
}

func TestReturnedUser_IsACopy(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	u := seedUser(t, st, "alice")

	got, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	got.RefreshTokenHash = "mutated"

	again, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, again.RefreshTokenHash)
}

func TestUpdateUserFields(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	u := seedUser(t, st, "alice")
	other := seedUser(t, st, "bob")

	got, err := st.UpdateUserFields(ctx, u.ID, models.UserFields{
		FullName:  ptr("Alice A."),
		AvatarURL: ptr("http://cdn/a.png"),
	})
	require.NoError(t, err)
	require.Equal(t, "Alice A.", got.FullName)
	require.Equal(t, "http://cdn/a.png", got.AvatarURL)
	require.Equal(t, u.Email, got.Email)
	require.Equal(t, "hash", got.PasswordHash)

	_, err = st.UpdateUserFields(ctx, u.ID, models.UserFields{Email: ptr(other.Email)})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = st.UpdateUserFields(ctx, uuid.New(), models.UserFields{FullName: ptr("x")})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRefreshToken_SetAndSwap(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	u := seedUser(t, st, "alice")

	require.NoError(t, st.SetRefreshToken(ctx, u.ID, "h1"))

	ok, err := st.SwapRefreshToken(ctx, u.ID, "h1", "h2")
	require.NoError(t, err)
	require.True(t, ok)

	// Старое значение больше не подходит; сохранённое не меняется.
	ok, err = st.SwapRefreshToken(ctx, u.ID, "h1", "h3")
	require.NoError(t, err)
	require.False(t, ok)

	got, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "h2", got.RefreshTokenHash)

	// После сброса обмен невозможен даже с пустым expected.
	require.NoError(t, st.SetRefreshToken(ctx, u.ID, ""))
	ok, err = st.SwapRefreshToken(ctx, u.ID, "", "h4")
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, st.SetRefreshToken(ctx, uuid.New(), "x"), storage.ErrNotFound)
	_, err = st.SwapRefreshToken(ctx, uuid.New(), "a", "b")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSwapRefreshToken_ConcurrentExactlyOneWins(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	u := seedUser(t, st, "alice")
	require.NoError(t, st.SetRefreshToken(ctx, u.ID, "h0"))

	const n = 16
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := st.SwapRefreshToken(ctx, u.ID, "h0", uuid.NewString())
			if err == nil && ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
}

func TestSubscriptions_And_ChannelProfile(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")
	carol := seedUser(t, st, "carol")

	require.NoError(t, st.Subscribe(ctx, bob.ID, alice.ID))
	require.NoError(t, st.Subscribe(ctx, carol.ID, alice.ID))
	require.NoError(t, st.Subscribe(ctx, alice.ID, bob.ID))
	require.ErrorIs(t, st.Subscribe(ctx, bob.ID, alice.ID), storage.ErrAlreadyExists)
	require.ErrorIs(t, st.Subscribe(ctx, bob.ID, uuid.New()), storage.ErrNotFound)

	p, err := st.ChannelProfile(ctx, "alice", bob.ID)
	require.NoError(t, err)
	require.Equal(t, alice.ID, p.ID)
	require.EqualValues(t, 2, p.SubscribersCount)
	require.EqualValues(t, 1, p.SubscribedToCount)
	require.True(t, p.IsSubscribed)

	p, err = st.ChannelProfile(ctx, "alice", uuid.Nil)
	require.NoError(t, err)
	require.False(t, p.IsSubscribed)

	require.NoError(t, st.Unsubscribe(ctx, bob.ID, alice.ID))
	require.ErrorIs(t, st.Unsubscribe(ctx, bob.ID, alice.ID), storage.ErrNotFound)

	p, err = st.ChannelProfile(ctx, "alice", bob.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, p.SubscribersCount)
	require.False(t, p.IsSubscribed)

	_, err = st.ChannelProfile(ctx, "ghost", uuid.Nil)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWatchHistory(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	v1 := models.Video{ID: uuid.New(), OwnerID: bob.ID, Title: "first"}
	v2 := models.Video{ID: uuid.New(), OwnerID: bob.ID, Title: "second"}
	st.PutVideo(v1)
	st.PutVideo(v2)

	require.NoError(t, st.RecordView(alice.ID, v2.ID))
	require.NoError(t, st.RecordView(alice.ID, v1.ID))
	require.NoError(t, st.RecordView(alice.ID, uuid.New())) // удалённое видео

	got, err := st.WatchHistory(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "second", got[0].Title)
	require.Equal(t, "first", got[1].Title)
	require.Equal(t, "bob", got[0].Owner.Username)

	empty, err := st.WatchHistory(ctx, bob.ID)
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = st.WatchHistory(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	st := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := st.UserByID(ctx, uuid.New())
	require.ErrorIs(t, err, context.Canceled)
}
