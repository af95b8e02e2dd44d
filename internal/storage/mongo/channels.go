package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/videotube-accounts/internal/models"
	"github.com/pribylovaa/videotube-accounts/internal/storage"
)

// ChannelProfile собирает профиль канала одним aggregate:
// $lookup подписчиков и подписок, $size для счётчиков и $in для признака
// подписки зрителя.
func (m *Mongo) ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error) {
	const op = "storage/mongo/ChannelProfile"

	viewer := ""
	if viewerID != uuid.Nil {
		viewer = viewerID.String()
	}

	pipeline := mongodriver.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "username", Value: username}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: subscriptionsCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "channel"},
			{Key: "as", Value: "subscribers"},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: subscriptionsCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "subscriber"},
			{Key: "as", Value: "subscribed_to"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "subscribers_count", Value: bson.D{{Key: "$size", Value: "$subscribers"}}},
			{Key: "subscribed_to_count", Value: bson.D{{Key: "$size", Value: "$subscribed_to"}}},
			{Key: "is_subscribed", Value: bson.D{{Key: "$in", Value: bson.A{viewer, "$subscribers.subscriber"}}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "subscribers", Value: 0},
			{Key: "subscribed_to", Value: 0},
			{Key: "password_hash", Value: 0},
			{Key: "refresh_token_hash", Value: 0},
			{Key: "watch_history", Value: 0},
		}}},
		{{Key: "$limit", Value: 1}},
	}

	cur, err := m.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%s: aggregate: %w", op, err)
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, fmt.Errorf("%s: cursor: %w", op, err)
		}

		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc channelDoc
	if err := cur.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	return doc.model(), nil
}

// WatchHistory раскрывает watch_history с сохранением порядка (includeArrayIndex),
// подтягивает видео и их владельцев. Видео, которых уже нет, пропускаются.
func (m *Mongo) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	const op = "storage/mongo/WatchHistory"

	n, err := m.users.CountDocuments(ctx, bson.D{{Key: "_id", Value: userID.String()}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	pipeline := mongodriver.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: userID.String()}}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$watch_history"},
			{Key: "includeArrayIndex", Value: "pos"},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: videosCollection},
			{Key: "localField", Value: "watch_history"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "video"},
		}}},
		{{Key: "$unwind", Value: "$video"}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: usersCollection},
			{Key: "localField", Value: "video.owner"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "owner"},
			{Key: "pipeline", Value: mongodriver.Pipeline{
				{{Key: "$project", Value: bson.D{
					{Key: "username", Value: 1},
					{Key: "full_name", Value: 1},
					{Key: "avatar_url", Value: 1},
				}}},
			}},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$owner"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "pos", Value: 1}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "video", Value: 1},
			{Key: "owner", Value: 1},
		}}},
	}

	cur, err := m.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%s: aggregate: %w", op, err)
	}
	defer cur.Close(ctx)

	out := make([]models.WatchedVideo, 0)
	for cur.Next(ctx) {
		var doc watchedDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}

		out = append(out, models.WatchedVideo{
			Video: doc.Video.model(),
			Owner: doc.Owner.model(),
		})
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	return out, nil
}

// Subscribe создаёт подписку; канал должен существовать.
func (m *Mongo) Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	const op = "storage/mongo/Subscribe"

	n, err := m.users.CountDocuments(ctx, bson.D{{Key: "_id", Value: channelID.String()}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	doc := subscriptionDoc{
		ID:         uuid.NewString(),
		Subscriber: subscriberID.String(),
		Channel:    channelID.String(),
		CreatedAt:  toMS(time.Now()),
	}

	if _, err := m.subscriptions.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Unsubscribe удаляет подписку.
func (m *Mongo) Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	const op = "storage/mongo/Unsubscribe"

	res, err := m.subscriptions.DeleteOne(ctx, bson.D{
		{Key: "subscriber", Value: subscriberID.String()},
		{Key: "channel", Value: channelID.String()},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// PutVideo добавляет или заменяет видео (наполнение окружения и тесты).
func (m *Mongo) PutVideo(ctx context.Context, v models.Video) error {
	const op = "storage/mongo/PutVideo"

	doc := toVideoDoc(v)

	_, err := m.videos.ReplaceOne(ctx, bson.D{{Key: "_id", Value: doc.ID}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
