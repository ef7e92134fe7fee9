package credentials

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SecretManagerSource reads the latest version of a Google Cloud Secret
// Manager secret per key.
type SecretManagerSource struct {
	project string
	names   map[Key]string
	access  func(ctx context.Context, name string) ([]byte, error)
	close   func() error
}

func NewSecretManagerSource(ctx context.Context, project string, names map[Key]string) (*SecretManagerSource, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}

	access := func(ctx context.Context, name string) ([]byte, error) {
		resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
		if err != nil {
			return nil, err
		}
		return resp.GetPayload().GetData(), nil
	}

	return &SecretManagerSource{
		project: project,
		names:   names,
		access:  access,
		close:   client.Close,
	}, nil
}

func (s *SecretManagerSource) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func (s *SecretManagerSource) Lookup(ctx context.Context, key Key) (string, error) {
	secret, ok := s.names[key]
	if !ok || secret == "" {
		return "", missing(key)
	}

	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.project, secret)
	data, err := s.access(ctx, name)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", missing(key)
		}
		return "", fmt.Errorf("access secret %s: %w", secret, err)
	}

	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", missing(key)
	}
	return value, nil
}
