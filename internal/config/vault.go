package config

import (
	"fmt"

	"github.com/hashicorp/vault/api"
)

// defaultSecretPath is the KV v2 location of the backend credentials when
// VAULT_SECRET_PATH is unset.
const defaultSecretPath = "secret/data/shopery/backend"

// overlayVault reads the backend secret from Vault and replaces the
// credential-bearing config fields with its values. Keys absent from the
// secret keep whatever the environment provided.
func (c *Config) overlayVault(addr, token, secretPath string) error {
	if secretPath == "" {
		secretPath = defaultSecretPath
	}

	vaultCfg := api.DefaultConfig()
	vaultCfg.Address = addr
	client, err := api.NewClient(vaultCfg)
	if err != nil {
		return fmt.Errorf("vault client: %w", err)
	}
	client.SetToken(token)

	secret, err := client.Logical().Read(secretPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", secretPath, err)
	}
	if secret == nil || secret.Data == nil {
		return fmt.Errorf("no secret at %s", secretPath)
	}

	// KV v2 nests the payload under a "data" key.
	values, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("secret at %s is not a KV v2 payload", secretPath)
	}

	c.applySecrets(values)
	return nil
}

// applySecrets copies the recognised secret keys over the config. Only
// non-empty string values override.
func (c *Config) applySecrets(values map[string]interface{}) {
	overlay := func(dst *string, key string) {
		if val, ok := values[key].(string); ok && val != "" {
			*dst = val
		}
	}
	overlay(&c.PostgresUser, "POSTGRES_USER")
	overlay(&c.PostgresPassword, "POSTGRES_PASSWORD")
	overlay(&c.NATSURL, "NATS_URL")
	overlay(&c.S3AccessKey, "AWS_ACCESS_KEY_ID")
	overlay(&c.S3SecretKey, "AWS_SECRET_ACCESS_KEY")
}
