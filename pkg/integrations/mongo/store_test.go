package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func TestCheckpointStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get returns stored id", func(mt *mtest.T) {
		store := NewCheckpointStore(CheckpointStoreDependencies{Collection: mt.Coll})

		mt.AddMockResponses(mtest.CreateCursorResponse(1, namespace(mt), mtest.FirstBatch,
			bson.D{{Key: "post_id", Value: "114000000000000001"}}))

		got, err := store.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "114000000000000001", got)
	})

	mt.Run("get without checkpoint", func(mt *mtest.T) {
		store := NewCheckpointStore(CheckpointStoreDependencies{Collection: mt.Coll})

		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		got, err := store.Get(context.Background())
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	mt.Run("get surfaces server errors", func(mt *mtest.T) {
		store := NewCheckpointStore(CheckpointStoreDependencies{Collection: mt.Coll})

		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Message: "not authorized",
			Name:    "Unauthorized",
		}))

		_, err := store.Get(context.Background())
		assert.Error(t, err)
	})

	mt.Run("set upserts", func(mt *mtest.T) {
		store := NewCheckpointStore(CheckpointStoreDependencies{Collection: mt.Coll})

		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		require.NoError(t, store.Set(context.Background(), "114000000000000002"))

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "update", started.CommandName)
	})

	mt.Run("reset deletes", func(mt *mtest.T) {
		store := NewCheckpointStore(CheckpointStoreDependencies{Collection: mt.Coll})

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		require.NoError(t, store.Reset(context.Background()))

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "delete", started.CommandName)
	})
}

func TestPostLog(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("record", func(mt *mtest.T) {
		log := NewPostLog(PostLogDependencies{Collection: mt.Coll})

		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "abc"}}}},
		))

		err := log.Record(context.Background(), domain.ProcessedPost{
			PostID:         "114000000000000001",
			Text:           "Tariffs",
			Classification: domain.ClassificationBearish,
			Confidence:     1,
			Alerted:        true,
			RunID:          "run-1",
			ProcessedAt:    time.Now().UTC(),
		})
		require.NoError(t, err)
	})

	mt.Run("record fails", func(mt *mtest.T) {
		log := NewPostLog(PostLogDependencies{Collection: mt.Coll})

		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := log.Record(context.Background(), domain.ProcessedPost{PostID: "1"})
		assert.Error(t, err)
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		log := NewPostLog(PostLogDependencies{Collection: mt.Coll})

		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(t, log.EnsureIndexes(context.Background()))
	})
}
