package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/videotube-accounts/internal/models"
	"github.com/pribylovaa/videotube-accounts/internal/storage"
)

// SaveUser создаёт нового пользователя.
// Конфликт по _id, username или email — storage.ErrAlreadyExists.
func (m *Mongo) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage/mongo/SaveUser"

	if _, err := m.users.InsertOne(ctx, toUserDoc(user)); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByID находит пользователя по ID.
func (m *Mongo) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage/mongo/UserByID"

	u, err := m.findUser(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// UserByUsernameOrEmail находит пользователя по username или email.
func (m *Mongo) UserByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	const op = "storage/mongo/UserByUsernameOrEmail"

	var or bson.A
	if username != "" {
		or = append(or, bson.D{{Key: "username", Value: username}})
	}
	if email != "" {
		or = append(or, bson.D{{Key: "email", Value: email}})
	}

	if len(or) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	u, err := m.findUser(ctx, bson.D{{Key: "$or", Value: or}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// UpdateUserFields обновляет заданные поля и возвращает запись после обновления.
func (m *Mongo) UpdateUserFields(ctx context.Context, id uuid.UUID, f models.UserFields) (*models.User, error) {
	const op = "storage/mongo/UpdateUserFields"

	set := bson.D{{Key: "updated_at", Value: toMS(time.Now())}}
	add := func(key string, v *string) {
		if v != nil {
			set = append(set, bson.E{Key: key, Value: *v})
		}
	}

	add("full_name", f.FullName)
	add("email", f.Email)
	add("avatar_url", f.AvatarURL)
	add("avatar_key", f.AvatarKey)
	add("cover_image_url", f.CoverImageURL)
	add("cover_image_key", f.CoverImageKey)
	add("password_hash", f.PasswordHash)

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDoc
	err := m.users.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id.String()}},
		bson.D{{Key: "$set", Value: set}},
		opts,
	).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongodriver.ErrNoDocuments):
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		case mongodriver.IsDuplicateKeyError(err):
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.model(), nil
}

// SetRefreshToken безусловно записывает хэш refresh-токена.
func (m *Mongo) SetRefreshToken(ctx context.Context, id uuid.UUID, hash string) error {
	const op = "storage/mongo/SetRefreshToken"

	res, err := m.users.UpdateByID(ctx, id.String(), bson.D{
		{Key: "$set", Value: bson.D{{Key: "refresh_token_hash", Value: hash}}},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// SwapRefreshToken — условное обновление: фильтр включает ожидаемый хэш,
// поэтому из конкурентных обменов одного и того же значения проходит один.
func (m *Mongo) SwapRefreshToken(ctx context.Context, id uuid.UUID, expected, next string) (bool, error) {
	const op = "storage/mongo/SwapRefreshToken"

	if expected != "" {
		res, err := m.users.UpdateOne(ctx,
			bson.D{
				{Key: "_id", Value: id.String()},
				{Key: "refresh_token_hash", Value: expected},
			},
			bson.D{{Key: "$set", Value: bson.D{{Key: "refresh_token_hash", Value: next}}}},
		)
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}

		if res.MatchedCount == 1 {
			return true, nil
		}
	}

	n, err := m.users.CountDocuments(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return false, nil
}

// RecordView дописывает видео в историю просмотров.
func (m *Mongo) RecordView(ctx context.Context, userID, videoID uuid.UUID) error {
	const op = "storage/mongo/RecordView"

	res, err := m.users.UpdateByID(ctx, userID.String(), bson.D{
		{Key: "$push", Value: bson.D{{Key: "watch_history", Value: videoID.String()}}},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func (m *Mongo) findUser(ctx context.Context, filter bson.D) (*models.User, error) {
	var doc userDoc
	if err := m.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}

	return doc.model(), nil
}
