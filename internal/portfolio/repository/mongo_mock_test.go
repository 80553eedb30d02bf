package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/utsingh/portfolio-api/internal/portfolio"
)

const mockNS = "portfolio.portfolio"

func updated(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func duplicateKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error collection: portfolio.portfolio index: type_unique"})
}

func found(docs ...bson.D) bson.D {
	return mtest.CreateCursorResponse(0, mockNS, mtest.FirstBatch, docs...)
}

func portfolioDoc(data bson.D) bson.D {
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "type", Value: portfolio.DocumentType},
		{Key: "data", Value: data},
	}
}

func commandNames(mt *mtest.T) []string {
	var names []string
	for _, e := range mt.GetAllStartedEvents() {
		names = append(names, e.CommandName)
	}
	return names
}

func TestMongoRepoAgainstMockDeployment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	skills := portfolio.Target{Section: "about", Field: "skills"}

	mt.Run("ensure indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(mt, NewMongoRepo(mt.Coll).EnsureIndexes(ctx))
		require.Equal(mt, []string{"createIndexes"}, commandNames(mt))
	})

	mt.Run("ensure indexes failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11000, Name: "DuplicateKey", Message: "E11000 duplicate key"}))
		require.Error(mt, NewMongoRepo(mt.Coll).EnsureIndexes(ctx))
	})

	mt.Run("get section", func(mt *mtest.T) {
		mt.AddMockResponses(found(portfolioDoc(bson.D{{Key: "about", Value: bson.D{{Key: "name", Value: "U"}}}})))
		v, err := NewMongoRepo(mt.Coll).GetSection(ctx, portfolio.Target{Section: "about"})
		require.NoError(mt, err)
		require.Equal(mt, map[string]interface{}{"name": "U"}, v)
	})

	mt.Run("get missing section", func(mt *mtest.T) {
		mt.AddMockResponses(found(portfolioDoc(bson.D{{Key: "travel", Value: nil}})))
		_, err := NewMongoRepo(mt.Coll).GetSection(ctx, portfolio.Target{Section: "travel"})
		require.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("get data without document", func(mt *mtest.T) {
		mt.AddMockResponses(found())
		data, err := NewMongoRepo(mt.Coll).GetData(ctx)
		require.NoError(mt, err)
		require.Empty(mt, data)
	})

	mt.Run("replace section", func(mt *mtest.T) {
		mt.AddMockResponses(updated(1))
		require.NoError(mt, NewMongoRepo(mt.Coll).ReplaceSection(ctx, portfolio.Target{Section: "about"}, map[string]interface{}{"name": "U"}))
	})

	mt.Run("add item", func(mt *mtest.T) {
		mt.AddMockResponses(updated(1))
		item, err := NewMongoRepo(mt.Coll).AddItem(ctx, skills, map[string]interface{}{"name": "Go"})
		require.NoError(mt, err)
		require.IsType(mt, primitive.ObjectID{}, item["_id"])
		require.Equal(mt, []string{"update"}, commandNames(mt))
	})

	mt.Run("add item path not viable", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: codePathNotViable, Message: "Cannot create field 'skills'"}))
		_, err := NewMongoRepo(mt.Coll).AddItem(ctx, skills, map[string]interface{}{"name": "Go"})
		require.ErrorIs(mt, err, ErrNotArray)
		require.Equal(mt, []string{"update"}, commandNames(mt))
	})

	mt.Run("add item onto scalar", func(mt *mtest.T) {
		mt.AddMockResponses(
			duplicateKey(),
			found(portfolioDoc(bson.D{{Key: "about", Value: bson.D{{Key: "skills", Value: "Go"}}}})),
		)
		_, err := NewMongoRepo(mt.Coll).AddItem(ctx, skills, map[string]interface{}{"name": "Go"})
		require.ErrorIs(mt, err, ErrNotArray)
		require.Equal(mt, []string{"update", "find"}, commandNames(mt))
	})

	mt.Run("add item after losing first insert", func(mt *mtest.T) {
		// the other writer created the document with the array in place
		mt.AddMockResponses(
			duplicateKey(),
			found(portfolioDoc(bson.D{{Key: "about", Value: bson.D{{Key: "skills", Value: bson.A{}}}}})),
			updated(1),
		)
		item, err := NewMongoRepo(mt.Coll).AddItem(ctx, skills, map[string]interface{}{"name": "Go"})
		require.NoError(mt, err)
		require.Equal(mt, "Go", item["name"])
		require.Equal(mt, []string{"update", "find", "update"}, commandNames(mt))
	})

	mt.Run("add item when path is still missing", func(mt *mtest.T) {
		mt.AddMockResponses(duplicateKey(), found(portfolioDoc(bson.D{})), updated(1))
		_, err := NewMongoRepo(mt.Coll).AddItem(ctx, skills, map[string]interface{}{"name": "Go"})
		require.NoError(mt, err)
	})

	mt.Run("add item retries once", func(mt *mtest.T) {
		mt.AddMockResponses(duplicateKey(), found(portfolioDoc(bson.D{})), duplicateKey())
		_, err := NewMongoRepo(mt.Coll).AddItem(ctx, skills, map[string]interface{}{"name": "Go"})
		require.Error(mt, err)
		require.NotErrorIs(mt, err, ErrNotArray)
		require.True(mt, mongo.IsDuplicateKeyError(err))
	})

	mt.Run("remove unknown item", func(mt *mtest.T) {
		mt.AddMockResponses(updated(0))
		err := NewMongoRepo(mt.Coll).RemoveItem(ctx, skills, portfolio.ParseIdentifier("nope"))
		require.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("remove item", func(mt *mtest.T) {
		mt.AddMockResponses(updated(1))
		require.NoError(mt, NewMongoRepo(mt.Coll).RemoveItem(ctx, skills, portfolio.ParseIdentifier("go")))
	})

	mt.Run("replace unknown item", func(mt *mtest.T) {
		mt.AddMockResponses(updated(0))
		_, err := NewMongoRepo(mt.Coll).ReplaceItem(ctx, skills, portfolio.ParseIdentifier("nope"), map[string]interface{}{"name": "Rust"})
		require.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("replace item", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		mt.AddMockResponses(updated(1))
		item, err := NewMongoRepo(mt.Coll).ReplaceItem(ctx, skills, portfolio.ParseIdentifier(oid.Hex()), map[string]interface{}{"name": "Rust"})
		require.NoError(mt, err)
		require.Equal(mt, map[string]interface{}{"name": "Rust", "_id": oid}, item)
		require.Equal(mt, []string{"update"}, commandNames(mt))
	})

	mt.Run("seed empty store", func(mt *mtest.T) {
		mt.AddMockResponses(found(), mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		inserted, err := NewMongoRepo(mt.Coll).Seed(ctx, map[string]interface{}{"about": map[string]interface{}{}})
		require.NoError(mt, err)
		require.True(mt, inserted)
		require.Equal(mt, []string{"find", "insert"}, commandNames(mt))
	})

	mt.Run("seed loses race", func(mt *mtest.T) {
		mt.AddMockResponses(found(), duplicateKey())
		inserted, err := NewMongoRepo(mt.Coll).Seed(ctx, map[string]interface{}{})
		require.NoError(mt, err)
		require.False(mt, inserted)
	})
}
