//go:build !js || !wasm

package config

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/dvcrn/igtoken/internal/credentials"
)

// NewStore creates the credential store selected by the configuration. The
// cloudflare-kv backend only exists in the worker build, where the namespace
// comes from the runtime binding instead of this factory.
func (s *StoreConfig) NewStore(ctx context.Context) (credentials.Store, error) {
	switch s.Backend {
	case StoreBackendMemory:
		return credentials.NewMemoryStore(), nil
	case StoreBackendFS:
		return credentials.NewFSStore(s.Path)
	case StoreBackendSSM:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		return credentials.NewSSMStore(ssm.NewFromConfig(awsCfg), s.SSMPrefix), nil
	case StoreBackendKeyring:
		return credentials.NewKeyringStore(s.KeyringService), nil
	case StoreBackendCloudflareKV:
		return nil, fmt.Errorf("store backend %q is only available in the worker build", s.Backend)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", s.Backend)
	}
}
