package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utsingh/portfolio-api/internal/config"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	// decode nested documents as maps so section content round-trips as plain JSON
	clientOpts := options.Client().ApplyURI(uri).SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// Store owns the process-wide MongoDB client. The first successful Connect
// is cached and every later call returns the same database handle; a failed
// attempt caches nothing.
type Store struct {
	cfg config.MongoDBConfig

	mu     sync.Mutex
	client *mongo.Client
	db     *mongo.Database
}

func NewStore(cfg config.MongoDBConfig) *Store {
	if cfg.URI == "" {
		cfg.URI = config.DefaultMongoURI
	}
	if cfg.Database == "" {
		cfg.Database = config.DefaultMongoDatabase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Store{cfg: cfg}
}

// Connect returns the cached database handle, connecting on first use.
func (s *Store) Connect(ctx context.Context) (*mongo.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	client, err := ConnectMongo(ctx, s.cfg.URI, s.cfg.Timeout)
	if err != nil {
		return nil, err
	}
	s.client = client
	s.db = client.Database(s.cfg.Database)
	return s.db, nil
}

// Collection connects if needed and returns the named collection.
func (s *Store) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := s.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// Ping checks the cached connection; it fails when Connect never succeeded.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return fmt.Errorf("mongo: not connected")
	}
	return client.Ping(ctx, nil)
}

// Disconnect closes the client and clears the cached handle.
func (s *Store) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	s.db = nil
	return err
}
