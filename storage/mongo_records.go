package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/zkkb/interfaces"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const mongoRecordsCollection = "records"

type mongoRecord struct {
	ID        string    `bson:"_id"`
	Namespace string    `bson:"namespace"`
	Key       string    `bson:"key"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoRecordStore keeps records in a single collection keyed by "<namespace>/<key>".
type MongoRecordStore struct {
	client      *mongo.Client
	coll        *mongo.Collection
	log         *slog.Logger
	locationURI string
}

func NewMongoRecordStore(client *mongo.Client, database, locationURI string, log *slog.Logger) *MongoRecordStore {
	return &MongoRecordStore{
		client:      client,
		coll:        client.Database(database).Collection(mongoRecordsCollection),
		log:         log,
		locationURI: locationURI,
	}
}

func mongoRecordID(namespace interfaces.RecordNamespace, key string) string {
	return string(namespace) + "/" + key
}

func (s *MongoRecordStore) Get(ctx context.Context, namespace interfaces.RecordNamespace, key string) ([]byte, error) {
	var rec mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": mongoRecordID(namespace, key)}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, interfaces.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return rec.Value, nil
}

func (s *MongoRecordStore) Put(ctx context.Context, namespace interfaces.RecordNamespace, key string, value []byte) error {
	rec := mongoRecord{
		ID:        mongoRecordID(namespace, key),
		Namespace: string(namespace),
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}

	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	s.log.Debug("Stored record in mongo",
		slog.String("namespace", string(namespace)),
		slog.String("key", key))
	return nil
}

func (s *MongoRecordStore) Delete(ctx context.Context, namespace interfaces.RecordNamespace, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": mongoRecordID(namespace, key)}); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *MongoRecordStore) List(ctx context.Context, namespace interfaces.RecordNamespace) ([]string, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"namespace": string(namespace)},
		options.Find().SetProjection(bson.M{"key": 1}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer cursor.Close(ctx)

	var keys []string
	for cursor.Next(ctx) {
		var rec mongoRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		keys = append(keys, rec.Key)
	}
	return keys, cursor.Err()
}

func (s *MongoRecordStore) Available(ctx context.Context) bool {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		s.log.Debug("Mongo unavailable", "err", err)
		return false
	}
	return true
}

func (s *MongoRecordStore) Name() string {
	return fmt.Sprintf("mongo-%s", s.coll.Database().Name())
}

func (s *MongoRecordStore) LocationURI() string {
	return s.locationURI
}

func (s *MongoRecordStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
