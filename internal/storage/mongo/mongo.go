package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pribylovaa/videotube-accounts/internal/storage"
)

const (
	usersCollection         = "users"
	subscriptionsCollection = "subscriptions"
	videosCollection        = "videos"
	defaultDBName           = "videotube"
)

// Mongo - тонкий адаптер для подключения и коллекций MongoDB.
type Mongo struct {
	client        *mongodriver.Client
	db            *mongodriver.Database
	users         *mongodriver.Collection
	subscriptions *mongodriver.Collection
	videos        *mongodriver.Collection
}

// New подключается к MongoDB, проверяет его, подготавливает коллекции и обеспечивает индексацию.
func New(ctx context.Context, uri string) (*Mongo, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty uri")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseFromURI(uri))

	m := &Mongo{
		client:        cli,
		db:            db,
		users:         db.Collection(usersCollection),
		subscriptions: db.Collection(subscriptionsCollection),
		videos:        db.Collection(videosCollection),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		m.Close()
		return nil, err
	}

	return m, nil
}

// Close отключает клиента.
func (m *Mongo) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = m.client.Disconnect(ctx)
}

// Ping проверяет доступность primary (используется /healthz).
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// ensureIndexes создаёт индексы:
//   - users: уникальные username и email;
//   - subscriptions: уникальная пара (subscriber, channel) и channel для подсчёта подписчиков;
//   - videos: owner.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.users.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("username_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("mongo ensure users indexes: %w", err)
	}

	_, err = m.subscriptions.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "subscriber", Value: 1}, {Key: "channel", Value: 1}},
			Options: options.Index().SetName("subscriber_channel_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "channel", Value: 1}},
			Options: options.Index().SetName("channel"),
		},
	})
	if err != nil {
		return fmt.Errorf("mongo ensure subscriptions indexes: %w", err)
	}

	_, err = m.videos.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "owner", Value: 1}},
		Options: options.Index().SetName("owner"),
	})
	if err != nil {
		return fmt.Errorf("mongo ensure videos indexes: %w", err)
	}

	return nil
}

// databaseFromURI извлекает имя базы данных из URI-пути mongodb.
// Если оно отсутствует или не поддается расшифровке, возвращает значение по умолчанию.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}

	return defaultDBName
}

// toMS приводит время к точности MongoDB DateTime.
func toMS(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Mongo)(nil)
