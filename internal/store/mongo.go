package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/nextwatch/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// Collection names used by the MongoDB backend.
const (
	RecommendationsCollection = "movierecommendations"
	HistoryCollection         = "searchhistories"

	defaultMongoDatabase = "next-watch"
)

type mongoRecommendation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	UserQuery       string             `bson:"userQuery"`
	Recommendations []models.Movie     `bson:"recommendations"`
	UserID          string             `bson:"userId"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

func (d mongoRecommendation) toModel() models.RecommendationRecord {
	movies := d.Recommendations
	if movies == nil {
		movies = []models.Movie{}
	}
	return models.RecommendationRecord{
		ID:              d.ID.Hex(),
		UserQuery:       d.UserQuery,
		Recommendations: movies,
		UserID:          d.UserID,
		CreatedAt:       d.CreatedAt.UTC(),
	}
}

type mongoHistory struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	Query     string             `bson:"query"`
	Timestamp time.Time          `bson:"timestamp"`
}

func (d mongoHistory) toModel() models.SearchHistoryEntry {
	return models.SearchHistoryEntry{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Query:     d.Query,
		Timestamp: d.Timestamp.UTC(),
	}
}

// MongoStore persists records in MongoDB.
type MongoStore struct {
	client  *mongo.Client
	recs    *mongo.Collection
	history *mongo.Collection
	logger  *slog.Logger
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects to uri, verifies the connection, and ensures indexes.
// The database name comes from the URI path, defaulting to "next-watch".
func NewMongoStore(ctx context.Context, uri string, logger *slog.Logger) (*MongoStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("parse mongodb uri: %w", err)
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = defaultMongoDatabase
	}

	logger.Info("connecting to MongoDB", "hosts", cs.Hosts, "database", dbName)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client:  client,
		recs:    db.Collection(RecommendationsCollection),
		history: db.Collection(HistoryCollection),
		logger:  logger,
	}
	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("MongoDB connection established")
	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	_, err := s.recs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create index on %s: %w", RecommendationsCollection, err)
	}

	_, err = s.history.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create index on %s: %w", HistoryCollection, err)
	}
	return nil
}

// mongoNow is truncated to the millisecond precision BSON dates store.
func mongoNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *MongoStore) RecordSearch(ctx context.Context, userID, query string) (*models.SearchHistoryEntry, error) {
	doc := mongoHistory{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Query:     query,
		Timestamp: mongoNow(),
	}
	if _, err := s.history.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert search history: %w", err)
	}
	entry := doc.toModel()
	return &entry, nil
}

func (s *MongoStore) SaveRecommendation(ctx context.Context, userQuery string, movies []models.Movie, userID string) (*models.RecommendationRecord, error) {
	if movies == nil {
		movies = []models.Movie{}
	}
	doc := mongoRecommendation{
		ID:              primitive.NewObjectID(),
		UserQuery:       userQuery,
		Recommendations: movies,
		UserID:          models.NormalizeUserID(userID),
		CreatedAt:       mongoNow(),
	}
	if _, err := s.recs.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert recommendation: %w", err)
	}
	rec := doc.toModel()
	return &rec, nil
}

// ObjectIDs grow monotonically per process, so _id desc breaks time ties by insertion.
func (s *MongoStore) GetHistory(ctx context.Context, userID string, limit int) ([]models.SearchHistoryEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.history.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find search history: %w", err)
	}
	var docs []mongoHistory
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode search history: %w", err)
	}

	out := make([]models.SearchHistoryEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (s *MongoStore) GetRecommendationsForUser(ctx context.Context, userID string, limit int) ([]models.RecommendationRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.recs.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find recommendations: %w", err)
	}
	var docs []mongoRecommendation
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}

	out := make([]models.RecommendationRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (s *MongoStore) GetRecommendationByID(ctx context.Context, id string) (*models.RecommendationRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc mongoRecommendation
	err = s.recs.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find recommendation: %w", err)
	}
	rec := doc.toModel()
	return &rec, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	s.logger.Info("closing MongoDB connection")
	return s.client.Disconnect(ctx)
}

// Drop removes both collections. Use for testing only.
func (s *MongoStore) Drop(ctx context.Context) error {
	if err := s.recs.Drop(ctx); err != nil {
		return fmt.Errorf("drop %s: %w", RecommendationsCollection, err)
	}
	if err := s.history.Drop(ctx); err != nil {
		return fmt.Errorf("drop %s: %w", HistoryCollection, err)
	}
	return s.createIndexes(ctx)
}
