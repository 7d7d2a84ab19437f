package providerRepo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"homely/database"
	"homely/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoProviderDirectory implements ProviderDirectory over the provider
// listings collection.
type MongoProviderDirectory struct {
	coll *mongo.Collection
}

func NewMongoProviderDirectory() *MongoProviderDirectory {
	return &MongoProviderDirectory{coll: database.Collection("providers")}
}

// FindProviders returns a quote for every active provider offering the
// service, sorted price ascending, rating descending, then provider ID so
// the ordering is stable across calls.
func (repo *MongoProviderDirectory) FindProviders(ctx context.Context, serviceName string) ([]models.ProviderQuote, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"active":                true,
		"services.service_name": serviceName,
	}
	cursor, err := repo.coll.Find(ctxWithTimeout, filter)
	if err != nil {
		return nil, fmt.Errorf("provider directory search failed: %w", err)
	}
	defer cursor.Close(ctxWithTimeout)

	var listings []models.ProviderListing
	if err := cursor.All(ctxWithTimeout, &listings); err != nil {
		return nil, fmt.Errorf("error decoding provider listings: %w", err)
	}

	var quotes []models.ProviderQuote
	for _, listing := range listings {
		for _, offering := range listing.Services {
			if offering.ServiceName == serviceName {
				quotes = append(quotes, models.ProviderQuote{
					ProviderID: listing.ID,
					Price:      offering.Price,
					Rating:     listing.Rating,
				})
				break
			}
		}
	}

	sort.Slice(quotes, func(i, j int) bool {
		if quotes[i].Price != quotes[j].Price {
			return quotes[i].Price < quotes[j].Price
		}
		if quotes[i].Rating != quotes[j].Rating {
			return quotes[i].Rating > quotes[j].Rating
		}
		return quotes[i].ProviderID < quotes[j].ProviderID
	})

	return quotes, nil
}
