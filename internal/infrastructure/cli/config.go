package cli

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dvaldes/tars-go/internal/infrastructure/config"
)

func newConfigCommand(opts Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewFileLoader("")
			cfg, err := loader.Load(cmd.Context())
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Printf("# %s\n%s", loader.Path(), out)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "diff",
		Short: "Show how the configuration differs from the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewFileLoader("")
			cfg, err := loader.Load(cmd.Context())
			if err != nil {
				return err
			}
			defaults, err := config.Defaults()
			if err != nil {
				return err
			}
			diff := cmp.Diff(defaults, cfg)
			if diff == "" {
				fmt.Println("configuration matches the defaults")
				return nil
			}
			fmt.Println(diff)
			return nil
		},
	})
	return cmd
}
