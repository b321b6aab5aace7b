package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/zkkb/interfaces"
)

// VaultRecordStore keeps records in a HashiCorp Vault KV v2 mount.
// Values are base64 encoded under the "content" field of each secret.
type VaultRecordStore struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultRecordStore creates a Vault-backed record store authenticated with a token.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: Path within the mount (e.g. "zkkb")
//   - token: Vault token; falls back to VAULT_TOKEN when empty
func NewVaultRecordStore(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultRecordStore, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.HttpClient = &http.Client{Timeout: 30 * time.Second}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.Trim(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultRecordStore{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://"), mountPath, dataPath),
	}, nil
}

func (s *VaultRecordStore) secretPath(kind string, namespace interfaces.RecordNamespace, key string) string {
	p := fmt.Sprintf("%s/%s/%s/%s", s.mountPath, kind, s.dataPath, namespace)
	if key != "" {
		p += "/" + url.PathEscape(key)
	}
	return p
}

func (s *VaultRecordStore) Get(ctx context.Context, namespace interfaces.RecordNamespace, key string) ([]byte, error) {
	p := s.secretPath("data", namespace, key)

	secret, err := s.client.Logical().ReadWithContext(ctx, p)
	if err != nil {
		s.log.Error("Failed to read from Vault", slog.String("path", p), "err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, interfaces.ErrRecordNotFound
	}

	// Soft-deleted versions come back with nil data.
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok || data == nil {
		return nil, interfaces.ErrRecordNotFound
	}

	content, ok := data["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content key not found in Vault data")
	}

	value, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("invalid content encoding in Vault data: %w", err)
	}
	return value, nil
}

func (s *VaultRecordStore) Put(ctx context.Context, namespace interfaces.RecordNamespace, key string, value []byte) error {
	p := s.secretPath("data", namespace, key)

	_, err := s.client.Logical().WriteWithContext(ctx, p, map[string]interface{}{
		"data": map[string]interface{}{
			"content": base64.StdEncoding.EncodeToString(value),
		},
	})
	if err != nil {
		s.log.Error("Failed to write to Vault", slog.String("path", p), "err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	s.log.Debug("Stored record in Vault", slog.String("path", p))
	return nil
}

// Delete removes all versions of the record.
func (s *VaultRecordStore) Delete(ctx context.Context, namespace interfaces.RecordNamespace, key string) error {
	p := s.secretPath("metadata", namespace, key)
	if _, err := s.client.Logical().DeleteWithContext(ctx, p); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *VaultRecordStore) List(ctx context.Context, namespace interfaces.RecordNamespace) ([]string, error) {
	p := s.secretPath("metadata", namespace, "")

	secret, err := s.client.Logical().ListWithContext(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}

	raw, _ := secret.Data["keys"].([]interface{})
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		name, ok := k.(string)
		if !ok || strings.HasSuffix(name, "/") {
			continue
		}
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
		keys = append(keys, name)
	}
	return keys, nil
}

// Available uses the health endpoint to verify that Vault is initialized and unsealed.
func (s *VaultRecordStore) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := s.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		s.log.Debug("Vault health check failed", "err", err)
		return false
	}
	if !health.Initialized || health.Sealed {
		s.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}
	return true
}

func (s *VaultRecordStore) Name() string {
	return fmt.Sprintf("vault-%s-%s", s.mountPath, s.dataPath)
}

func (s *VaultRecordStore) LocationURI() string {
	return s.locationURI
}
