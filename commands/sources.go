package commands

import (
	"fmt"
	"log/slog"

	"github.com/c360studio/examforge/source"
	"github.com/spf13/cobra"
)

func newSourcesCommand() *cobra.Command {
	var (
		configPath string
		ingest     bool
	)

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the reference documents a generation run would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			paths, err := source.Discover(cfg.Sources.Root, cfg.Sources.Patterns)
			if err != nil {
				return fmt.Errorf("discover sources: %w", err)
			}
			if len(paths) == 0 {
				fmt.Printf("No reference documents under %s\n", cfg.Sources.Root)
				return nil
			}

			if !ingest {
				for _, p := range paths {
					fmt.Println(p)
				}
				return nil
			}

			refs := source.IngestAll(paths, slog.Default())
			for _, ref := range refs {
				switch {
				case ref.Text != "":
					fmt.Printf("%s\t%s\t%d chars\n", ref.Name, ref.MIMEType, len(ref.Text))
				default:
					fmt.Printf("%s\t%s\t%d bytes\n", ref.Name, ref.MIMEType, len(ref.Data))
				}
			}
			fmt.Printf("\n%d of %d documents ingested\n", len(refs), len(paths))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().BoolVar(&ingest, "ingest", false, "Extract content and report sizes")

	return cmd
}
