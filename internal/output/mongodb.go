// internal/output/mongodb.go
package output

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valpere/AgentScrapexter/internal/agent"
)

const defaultLinkCollection = "links"

// MongoSink writes link records into a MongoDB collection.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoSink connects to MongoDB and binds the target collection.
func NewMongoSink(ctx context.Context, uri, database, collection string) (*MongoSink, error) {
	if collection == "" {
		collection = defaultLinkCollection
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Write inserts the batch as documents.
func (s *MongoSink) Write(ctx context.Context, links []agent.Link) error {
	if len(links) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(links))
	for _, link := range links {
		docs = append(docs, bson.M{
			"url":           link.URL,
			"name":          link.Name,
			"source_url":    link.SourceURL,
			"region":        link.Region,
			"discovered_at": link.DiscoveredAt,
		})
	}

	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert links: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Format returns the sink type name.
func (s *MongoSink) Format() string { return TypeMongoDB }
