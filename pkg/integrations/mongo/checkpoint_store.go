package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CheckpointStore keeps the newest handled post id in a single-document
// collection.
type CheckpointStore struct {
	collection *mongo.Collection
}

type CheckpointStoreDependencies struct {
	Collection *mongo.Collection
}

func NewCheckpointStore(deps CheckpointStoreDependencies) *CheckpointStore {
	return &CheckpointStore{collection: deps.Collection}
}

type checkpointDocument struct {
	PostID string `bson:"post_id"`
}

func (s *CheckpointStore) Get(ctx context.Context) (string, error) {
	var doc checkpointDocument

	err := s.collection.FindOne(ctx, bson.M{}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read checkpoint: %w", err)
	}

	return doc.PostID, nil
}

func (s *CheckpointStore) Set(ctx context.Context, postID string) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{},
		bson.M{"$set": bson.M{"post_id": postID}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	return nil
}

func (s *CheckpointStore) Reset(ctx context.Context) error {
	if _, err := s.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to reset checkpoint: %w", err)
	}

	return nil
}
