package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"prothompay.io/infrastructure/logger"
)

func (repo *MongoRepository[T]) CreateOne(ctx context.Context, payload T) (*T, error) {
	parsed := payload.ParseModel().(*T)
	c, cancel := repo.requestContext(ctx)
	defer cancel()
	_, err := repo.Model.InsertOne(c, parsed)
	if err != nil {
		logger.Error("an error occured while creating a document", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return nil, err
	}
	return parsed, nil
}

func (repo *MongoRepository[T]) FindByID(id string) (*T, error) {
	c, cancel := repo.requestContext(context.Background())
	defer cancel()
	var result T
	err := repo.Model.FindOne(c, bson.M{"_id": id}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logger.Error("an error occured while finding a document by id", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return nil, err
	}
	return &result, nil
}

func (repo *MongoRepository[T]) FindOneByFilter(filter map[string]interface{}) (*T, error) {
	c, cancel := repo.requestContext(context.Background())
	defer cancel()
	var result T
	err := repo.Model.FindOne(c, filter).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logger.Error("an error occured while finding a document", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return nil, err
	}
	return &result, nil
}

func (repo *MongoRepository[T]) FindMany(filter map[string]interface{}) (*[]T, error) {
	c, cancel := repo.requestContext(context.Background())
	defer cancel()
	cursor, err := repo.Model.Find(c, filter)
	if err != nil {
		logger.Error("an error occured while finding documents", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return nil, err
	}
	results := []T{}
	if err := cursor.All(c, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

func (repo *MongoRepository[T]) CountDocs(filter map[string]interface{}) (int64, error) {
	c, cancel := repo.requestContext(context.Background())
	defer cancel()
	count, err := repo.Model.CountDocuments(c, filter)
	if err != nil {
		logger.Error("an error occured while counting documents", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return 0, err
	}
	return count, nil
}

func (repo *MongoRepository[T]) UpdatePartialByID(id string, payload map[string]any) (int64, error) {
	c, cancel := repo.requestContext(context.Background())
	defer cancel()
	payload["updatedAt"] = time.Now()
	result, err := repo.Model.UpdateOne(c, bson.M{"_id": id}, bson.M{"$set": payload})
	if err != nil {
		logger.Error("an error occured while updating a document by id", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (repo *MongoRepository[T]) UpdatePartialByFilter(filter map[string]interface{}, payload map[string]any) (int64, error) {
	c, cancel := repo.requestContext(context.Background())
	defer cancel()
	payload["updatedAt"] = time.Now()
	result, err := repo.Model.UpdateOne(c, filter, bson.M{"$set": payload})
	if err != nil {
		logger.Error("an error occured while updating a document", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (repo *MongoRepository[T]) DeleteOne(filter map[string]interface{}) (int64, error) {
	c, cancel := repo.requestContext(context.Background())
	defer cancel()
	result, err := repo.Model.DeleteOne(c, filter)
	if err != nil {
		logger.Error("an error occured while deleting a document", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return 0, err
	}
	return result.DeletedCount, nil
}

func (repo *MongoRepository[T]) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 15*time.Second)
}
