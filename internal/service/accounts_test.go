package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/videotube-accounts/internal/models"
	"github.com/pribylovaa/videotube-accounts/internal/storage"
	"github.com/pribylovaa/videotube-accounts/mocks"
)

func validRegister() RegisterInput {
	return RegisterInput{
		Username: " Alice ",
		Email:    "Alice@Example.com",
		FullName: " Alice Liddell ",
		Password: goodPassword,
	}
}

func TestRegister_OK_NormalizesAndHashes(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	var saved *models.User
	st.EXPECT().UserByUsernameOrEmail(gomock.Any(), "alice", "alice@example.com").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) error {
			saved = u
			return nil
		})

	pub, err := svc.Register(context.Background(), validRegister())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, pub.ID)
	require.Equal(t, "alice", pub.Username)
	require.Equal(t, "alice@example.com", pub.Email)
	require.Equal(t, "Alice Liddell", pub.FullName)

	require.NotNil(t, saved)
	require.NotEqual(t, goodPassword, saved.PasswordHash)
	require.True(t, svc.hasher.Verify(goodPassword, saved.PasswordHash))
	require.Empty(t, saved.RefreshTokenHash)
}

func TestRegister_ValidationErrors(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	tcs := []struct {
		name   string
		mutate func(in *RegisterInput)
		want   error
	}{
		{"blank username", func(in *RegisterInput) { in.Username = "  " }, ErrMissingFields},
		{"blank email", func(in *RegisterInput) { in.Email = "" }, ErrMissingFields},
		{"blank full name", func(in *RegisterInput) { in.FullName = "\t" }, ErrMissingFields},
		{"blank password", func(in *RegisterInput) { in.Password = "   " }, ErrMissingFields},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, ErrInvalidEmail},
		{"display-name email", func(in *RegisterInput) { in.Email = "Alice <alice@example.com>" }, ErrInvalidEmail},
		{"username with slash", func(in *RegisterInput) { in.Username = "al/ice" }, ErrInvalidUsername},
		{"username too short", func(in *RegisterInput) { in.Username = "al" }, ErrInvalidUsername},
		{"short password", func(in *RegisterInput) { in.Password = "Ab1!" }, ErrWeakPassword},
		{"no special", func(in *RegisterInput) { in.Password = "Abcdefg1" }, ErrWeakPassword},
		{"no upper", func(in *RegisterInput) { in.Password = "abcdef1!" }, ErrWeakPassword},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			in := validRegister()
			tc.mutate(&in)

			_, err := svc.Register(context.Background(), in)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRegister_Conflicts(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Найден при предварительной проверке.
	st.EXPECT().UserByUsernameOrEmail(gomock.Any(), "alice", "alice@example.com").
		Return(&models.User{ID: uuid.New(), Username: "alice"}, nil)
	_, err := svc.Register(context.Background(), validRegister())
	require.ErrorIs(t, err, ErrUserExists)

	// Гонка: проверка прошла, но уникальный индекс сработал при вставке.
	st.EXPECT().UserByUsernameOrEmail(gomock.Any(), "alice", "alice@example.com").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists)
	_, err = svc.Register(context.Background(), validRegister())
	require.ErrorIs(t, err, ErrUserExists)
}

func TestRegister_StorageError_Propagated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByUsernameOrEmail(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
	_, err := svc.Register(context.Background(), validRegister())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUserExists)
}

func TestUpdateAccount(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	c := mocks.NewMockUserCache(ctrl)
	svc.SetUserCache(c)

	ctx := context.Background()
	id := uuid.New()

	_, err := svc.UpdateAccount(ctx, id, UpdateAccountInput{FullName: "", Email: "a@b.c"})
	require.ErrorIs(t, err, ErrMissingFields)

	_, err = svc.UpdateAccount(ctx, id, UpdateAccountInput{FullName: "A", Email: "nope"})
	require.ErrorIs(t, err, ErrInvalidEmail)

	st.EXPECT().UpdateUserFields(gomock.Any(), id, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, f models.UserFields) (*models.User, error) {
			require.Equal(t, "New Name", *f.FullName)
			require.Equal(t, "new@example.com", *f.Email)
			require.Nil(t, f.PasswordHash)
			return &models.User{ID: id, FullName: *f.FullName, Email: *f.Email}, nil
		})
	c.EXPECT().Invalidate(gomock.Any(), id).Return(nil)

	pub, err := svc.UpdateAccount(ctx, id, UpdateAccountInput{FullName: " New Name ", Email: "NEW@example.com"})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", pub.Email)

	st.EXPECT().UpdateUserFields(gomock.Any(), id, gomock.Any()).Return(nil, storage.ErrAlreadyExists)
	_, err = svc.UpdateAccount(ctx, id, UpdateAccountInput{FullName: "A", Email: "taken@example.com"})
	require.ErrorIs(t, err, ErrUserExists)

	st.EXPECT().UpdateUserFields(gomock.Any(), id, gomock.Any()).Return(nil, storage.ErrNotFound)
	_, err = svc.UpdateAccount(ctx, id, UpdateAccountInput{FullName: "A", Email: "a@example.com"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	require.NoError(t, validatePassword("Abcdef1!"))
	require.NoError(t, validatePassword("Пароль1!"))
	require.ErrorIs(t, validatePassword(""), ErrWeakPassword)
	require.ErrorIs(t, validatePassword("ABCDEF1!"), ErrWeakPassword)
	require.ErrorIs(t, validatePassword("Abcdefgh!"), ErrWeakPassword)
}
