//go:build !js || !wasm

package credentials

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// SSMStore keeps credentials in AWS Systems Manager Parameter Store as
// SecureString parameters under a common path prefix. Parameter names cannot
// contain ":", so store keys are mapped onto the path hierarchy by turning
// ":" into "/" (token:acme becomes <prefix>/token/acme).
type SSMStore struct {
	client *ssm.Client
	prefix string
}

// NewSSMStore creates a Parameter Store backed store rooted at prefix.
func NewSSMStore(client *ssm.Client, prefix string) *SSMStore {
	prefix = strings.TrimSuffix(prefix, "/")
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return &SSMStore{client: client, prefix: prefix}
}

func (s *SSMStore) Get(ctx context.Context, key string) (string, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.parameterName(key)),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get parameter for %q: %w", key, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", ErrNotFound
	}
	return aws.ToString(out.Parameter.Value), nil
}

func (s *SSMStore) Set(ctx context.Context, key, value string) error {
	_, err := s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(s.parameterName(key)),
		Value:     aws.String(value),
		Type:      types.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to put parameter for %q: %w", key, err)
	}
	return nil
}

func (s *SSMStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	path := s.prefix
	if trimmed := strings.Trim(strings.ReplaceAll(prefix, ":", "/"), "/"); trimmed != "" {
		path += "/" + trimmed
	}

	var keys []string
	var nextToken *string
	for {
		out, err := s.client.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
			Path:      aws.String(path),
			Recursive: aws.Bool(true),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list parameters under %s: %w", path, err)
		}
		for _, param := range out.Parameters {
			key := s.keyFor(aws.ToString(param.Name))
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *SSMStore) parameterName(key string) string {
	return s.prefix + "/" + strings.ReplaceAll(key, ":", "/")
}

func (s *SSMStore) keyFor(parameterName string) string {
	name := strings.TrimPrefix(parameterName, s.prefix+"/")
	return strings.ReplaceAll(name, "/", ":")
}
