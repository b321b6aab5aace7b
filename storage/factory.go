package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ruteri/zkkb/interfaces"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StorageBackendFactory creates blob backends and record stores from location URIs.
type StorageBackendFactory struct {
	log *slog.Logger
}

func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{log: logger}
}

// StorageBackendFor creates a blob backend from a location URI.
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS node mutable file system
func (sf *StorageBackendFactory) StorageBackendFor(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	switch location.Scheme {
	case "ipfs":
		return sf.createIPFSBackend(location)
	case "s3":
		return sf.createS3Backend(location)
	case "file":
		path, err := filePath(location)
		if err != nil {
			return nil, err
		}
		return NewFileBackend(path, sf.log)
	default:
		return nil, fmt.Errorf("%w: unsupported blob backend scheme: %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiBackend aggregates all valid backends, storing to every available one
// and fetching from the first that has the content.
// Returns an error if no valid backends could be created from the provided URIs.
func (sf *StorageBackendFactory) CreateMultiBackend(locations []interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	backends := make([]interfaces.StorageBackend, 0, len(locations))

	for _, loc := range locations {
		backend, err := sf.StorageBackendFor(loc)
		if err != nil {
			sf.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("locationURI", loc.String()))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created")
	}

	return NewMultiStorageBackend(backends, sf.log), nil
}

// RecordStoreFor creates a record store from a location URI.
//
// Supported schemes:
//   - file:///path - one file per record
//   - redis://[:password@]host:port/db
//   - mongodb://host:port/?database=zkkb
//   - vault://host:port/mount/path?token=...&tls=true
func (sf *StorageBackendFactory) RecordStoreFor(ctx context.Context, location interfaces.StorageBackendLocation) (interfaces.RecordStore, error) {
	sf.log.Debug("Creating record store", slog.String("scheme", location.Scheme))

	switch location.Scheme {
	case "file":
		path, err := filePath(location)
		if err != nil {
			return nil, err
		}
		return NewFileRecordStore(path, sf.log)
	case "redis", "rediss":
		opts, err := redis.ParseURL(location.Raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
		}
		return NewRedisRecordStore(redis.NewClient(opts), location.Raw, sf.log), nil
	case "mongodb", "mongodb+srv":
		database := location.GetParam("database")
		if database == "" {
			database = "zkkb"
		}
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(location.Raw))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		return NewMongoRecordStore(client, database, location.Raw, sf.log), nil
	case "vault":
		return sf.createVaultRecordStore(location)
	default:
		return nil, fmt.Errorf("%w: unsupported record store scheme: %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// createIPFSBackend parses ipfs://host:port/root?timeout=30s
func (sf *StorageBackendFactory) createIPFSBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	host := location.URL.Hostname()
	port := location.URL.Port()
	if port == "" {
		port = "5001"
	}

	timeout := 30 * time.Second
	if raw := location.GetParam("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout: %v", interfaces.ErrInvalidLocationURI, err)
		}
		timeout = d
	}

	return NewIPFSBackend(host, port, location.Path, timeout, sf.log)
}

// createS3Backend parses s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=us-west-2&endpoint=custom.s3.com
func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	bucketName := location.URL.Hostname()
	if bucketName == "" {
		return nil, fmt.Errorf("%w: missing bucket name", interfaces.ErrInvalidLocationURI)
	}

	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if location.URL.User != nil {
		accessKey = location.URL.User.Username()
		secretKey, _ = location.URL.User.Password()
	}

	return NewS3Backend(bucketName, strings.TrimPrefix(location.Path, "/"), region, location.GetParam("endpoint"), accessKey, secretKey, sf.log)
}

func (sf *StorageBackendFactory) createVaultRecordStore(location interfaces.StorageBackendLocation) (interfaces.RecordStore, error) {
	parts := strings.SplitN(strings.Trim(location.Path, "/"), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: expected vault://host:port/mount/path", interfaces.ErrInvalidLocationURI)
	}

	scheme := "http"
	if location.GetParamBool("tls") {
		scheme = "https"
	}

	token := location.GetParam("token")
	if token == "" {
		token = os.Getenv("VAULT_TOKEN")
	}

	return NewVaultRecordStore(fmt.Sprintf("%s://%s", scheme, location.Host), parts[0], parts[1], token, sf.log)
}

// filePath accepts file:///absolute/path and file://./relative/path.
func filePath(location interfaces.StorageBackendLocation) (string, error) {
	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return "", fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, location.Raw)
	}
	return path, nil
}
