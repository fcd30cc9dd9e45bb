package database

import (
	"context"
	"errors"
	"fmt"

	"rolelink/entity"
	"rolelink/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionInviteLinks = tableInviteLinks

type MongoDB struct {
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) (*MongoDB, error) {
	if conf.Database.Driver != config.DatabaseMongo {
		return nil, fmt.Errorf("mongo client is disabled in configuration")
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Database.Host, conf.Database.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Database.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Database.User,
			Password:   conf.Database.Password,
			AuthSource: conf.Database.Name,
		})
	}
	client := &MongoDB{
		clientOptions: clientOptions,
		database:      conf.Database.Name,
	}
	if err := client.ensureIndexes(context.Background()); err != nil {
		return nil, err
	}
	return client, nil
}

func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(ctx context.Context, connection *mongo.Client) {
	_ = connection.Disconnect(ctx)
}

func (m *MongoDB) Close() {}

func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInviteLinks)
	_, err = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "link_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "created_at_unix", Value: -1}}},
		{Keys: bson.D{{Key: "created_by_user_id", Value: 1}, {Key: "created_at_unix", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongodb create indexes: %w", err)
	}
	return nil
}

func (m *MongoDB) Insert(ctx context.Context, link *entity.InviteLink) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInviteLinks)
	_, err = collection.InsertOne(ctx, link)
	if mongo.IsDuplicateKeyError(err) {
		return entity.ErrDuplicateLink
	}
	if err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}
	return nil
}

func (m *MongoDB) GetByID(ctx context.Context, linkID string) (*entity.InviteLink, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInviteLinks)
	filter := bson.D{{Key: "link_id", Value: linkID}}
	var link entity.InviteLink
	err = collection.FindOne(ctx, filter).Decode(&link)
	if err != nil {
		return nil, m.findError(err)
	}
	return &link, nil
}

func (m *MongoDB) ListByGuild(ctx context.Context, guildID string) ([]*entity.InviteLink, error) {
	return m.list(ctx, bson.D{{Key: "guild_id", Value: guildID}})
}

func (m *MongoDB) ListByCreator(ctx context.Context, userID string) ([]*entity.InviteLink, error) {
	return m.list(ctx, bson.D{{Key: "created_by_user_id", Value: userID}})
}

func (m *MongoDB) DeleteByID(ctx context.Context, linkID string) (bool, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return false, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInviteLinks)
	res, err := collection.DeleteOne(ctx, bson.D{{Key: "link_id", Value: linkID}})
	if err != nil {
		return false, fmt.Errorf("mongodb delete: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (m *MongoDB) IncrementUses(ctx context.Context, linkID string) (bool, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return false, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInviteLinks)
	filter := bson.D{{Key: "link_id", Value: linkID}}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "current_uses", Value: 1}}}}
	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("mongodb increment: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (m *MongoDB) list(ctx context.Context, filter bson.D) ([]*entity.InviteLink, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInviteLinks)
	opts := options.Find().SetSort(bson.D{{Key: "created_at_unix", Value: -1}})
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	defer cursor.Close(ctx)

	var links []*entity.InviteLink
	if err = cursor.All(ctx, &links); err != nil {
		return nil, err
	}
	return links, nil
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find: %w", err)
}
