package commands

import (
	"fmt"

	"github.com/c360studio/examforge/credential"
	"github.com/spf13/cobra"
)

func newCredentialsCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Inspect the configured API key pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			keys, err := credential.LoadKeys(cfg.Credentials.File)
			if err != nil {
				return fmt.Errorf("load credentials: %w", err)
			}

			fmt.Printf("Pool: %d keys from %s (policy: %s)\n",
				len(keys), cfg.Credentials.File, cfg.Credentials.Policy)
			for i, key := range keys {
				fmt.Printf("  [%d] %s\n", i, maskKey(key))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	return cmd
}

// maskKey keeps enough of the key to identify it without disclosing it.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
