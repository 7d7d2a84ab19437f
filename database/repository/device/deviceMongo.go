package deviceRepo

import (
	"context"
	"fmt"
	"time"

	"homely/database"
	"homely/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDeviceTokenRepo implements DeviceTokenRepository.
type MongoDeviceTokenRepo struct {
	coll *mongo.Collection
}

func NewMongoDeviceTokenRepo() *MongoDeviceTokenRepo {
	return &MongoDeviceTokenRepo{coll: database.Collection("device_tokens")}
}

// SaveToken upserts the token for one (owner, role) pair.
func (repo *MongoDeviceTokenRepo) SaveToken(ctx context.Context, token models.DeviceToken) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	token.UpdatedAt = time.Now().UTC()
	filter := bson.M{"owner_id": token.OwnerID, "role": token.Role}
	update := bson.M{"$set": token}
	opts := options.Update().SetUpsert(true)

	if _, err := repo.coll.UpdateOne(ctxWithTimeout, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save device token for %s: %w", token.OwnerID, err)
	}
	return nil
}

// GetToken returns the registered FCM token for an account.
func (repo *MongoDeviceTokenRepo) GetToken(ctx context.Context, ownerID, role string) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var token models.DeviceToken
	err := repo.coll.FindOne(ctxWithTimeout, bson.M{"owner_id": ownerID, "role": role}).Decode(&token)
	if err == mongo.ErrNoDocuments {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch device token for %s: %w", ownerID, err)
	}
	return token.FCMToken, nil
}
