// Package store persists serialized audit documents
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/root-sector/access-audit-serializer/interfaces"
	"github.com/root-sector/access-audit-serializer/types"
)

const (
	// DefaultCollection is the collection journal records are written to
	DefaultCollection = "journal"

	defaultFindLimit = 100
)

// journalRecord is the stored form of a document
type journalRecord struct {
	ID            string                        `bson:"_id"`
	Type          string                        `bson:"type"`
	Attributes    bson.M                        `bson:"attributes"`
	Relationships map[string]types.Relationship `bson:"relationships"`
	RecordedAt    time.Time                     `bson:"recordedAt"`
}

// MongoDBStore implements journal storage using MongoDB
type MongoDBStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoDBStore creates a journal store writing to collection in db
func NewMongoDBStore(db *mongo.Database, collection string) interfaces.JournalStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &MongoDBStore{
		collection: db.Collection(collection),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Connect opens a client on uri and returns a store plus the function
// disconnecting it
func Connect(ctx context.Context, uri, database, collection string) (interfaces.JournalStore, func(context.Context) error, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	log.Debug().
		Str("database", database).
		Str("collection", collection).
		Msg("Journal store connected")
	return NewMongoDBStore(client.Database(database), collection), client.Disconnect, nil
}

// Save stores a document, replacing any earlier record of the same entry
func (s *MongoDBStore) Save(ctx context.Context, doc *types.Document) error {
	record, err := toRecord(doc, s.now())
	if err != nil {
		return err
	}

	_, err = s.collection.ReplaceOne(
		ctx,
		bson.M{"_id": record.ID},
		record,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to store journal record: %w", err)
	}

	log.Trace().
		Str("auditId", record.ID).
		Str("type", record.Type).
		Msg("Journal record stored")
	return nil
}

// Find returns the newest documents, optionally of one type only
func (s *MongoDBStore) Find(ctx context.Context, typeName string, limit int64) ([]*types.Document, error) {
	filter := bson.M{}
	if typeName != "" {
		filter["type"] = typeName
	}
	if limit <= 0 {
		limit = defaultFindLimit
	}

	cursor, err := s.collection.Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "recordedAt", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer cursor.Close(ctx)

	var records []journalRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode journal records: %w", err)
	}

	docs := make([]*types.Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, fromRecord(r))
	}
	return docs, nil
}

func toRecord(doc *types.Document, now time.Time) (*journalRecord, error) {
	if doc == nil {
		return nil, fmt.Errorf("document cannot be nil")
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("document of type %q has no id", doc.Type)
	}
	attrs := make(bson.M, len(doc.Attributes))
	for k, v := range doc.Attributes {
		attrs[k] = v
	}
	return &journalRecord{
		ID:            doc.ID,
		Type:          doc.Type,
		Attributes:    attrs,
		Relationships: doc.Relationships,
		RecordedAt:    now,
	}, nil
}

func fromRecord(r journalRecord) *types.Document {
	doc := types.NewDocument(r.Type, r.ID)
	for k, v := range r.Attributes {
		doc.Attributes[k] = normalize(v)
	}
	for k, rel := range r.Relationships {
		doc.Relationships[k] = rel
	}
	return doc
}

// normalize turns the driver's ordered documents back into plain maps and slices
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.D:
		m := make(map[string]interface{}, len(val))
		for _, e := range val {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]interface{}, len(val))
		for k, e := range val {
			m[k] = normalize(e)
		}
		return m
	case bson.A:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}
