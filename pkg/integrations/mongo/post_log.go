package mongodb

import (
	"context"
	"fmt"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostLog records every handled post keyed by post id. Re-recording a
// post overwrites the earlier row.
type PostLog struct {
	collection *mongo.Collection
}

type PostLogDependencies struct {
	Collection *mongo.Collection
}

func NewPostLog(deps PostLogDependencies) *PostLog {
	return &PostLog{collection: deps.Collection}
}

func (l *PostLog) EnsureIndexes(ctx context.Context) error {
	_, err := l.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "post_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("post_id_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create post log index: %w", err)
	}

	return nil
}

func (l *PostLog) Record(ctx context.Context, post domain.ProcessedPost) error {
	_, err := l.collection.UpdateOne(ctx,
		bson.M{"post_id": post.PostID},
		bson.M{
			"$set":         post,
			"$setOnInsert": bson.M{"_id": xid.New().String()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to record post %s: %w", post.PostID, err)
	}

	return nil
}
