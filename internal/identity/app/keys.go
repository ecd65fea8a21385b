package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corvidmail/corvid/internal/identity/store"
	"github.com/corvidmail/corvid/pkg/cryptox"
	"github.com/corvidmail/corvid/pkg/jwtx"
)

// InitSigningKeys creates the KeyManager for the configured storage mode.
//
// Storage modes:
//   - "persistent": Keys are stored encrypted in the database and survive
//     restarts. Retired keys keep verifying tokens for the grace period.
//   - "ephemeral": Keys are generated on startup and held only in memory.
//     Every outstanding token becomes invalid when the service restarts,
//     which is only acceptable for development.
//
// All keys are Ed25519 and sign with EdDSA.
func InitSigningKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, error) {
	if cfg.MasterKeyPath != "" {
		cryptox.SetMasterKeyPath(cfg.MasterKeyPath)
		logger.Info("master key path configured", "path", cfg.MasterKeyPath)
	}

	switch cfg.KeyStorageMode {
	case "ephemeral":
		keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
			Issuer:   cfg.Issuer,
			Audience: nil,
			NumKeys:  cfg.NumKeys,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize ephemeral key manager: %w", err)
		}

		logger.Warn("ephemeral signing keys generated, all previously issued tokens are now invalid",
			"num_keys", keyManager.NumSigners(),
			"issuer", cfg.Issuer,
		)
		return keyManager, nil

	default:
		keyManager, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			Store:       store.NewKeyStoreAdapter(db),
			Issuer:      cfg.Issuer,
			Audience:    nil,
			NumKeys:     cfg.NumKeys,
			GracePeriod: cfg.KeyGracePeriod,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize persistent key manager: %w", err)
		}

		logger.Info("persistent signing keys loaded",
			"num_keys", keyManager.NumSigners(),
			"issuer", cfg.Issuer,
			"grace_period", cfg.KeyGracePeriod,
		)
		return keyManager, nil
	}
}
