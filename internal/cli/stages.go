package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/ap-invoice-intake/internal/container"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Inspect or bootstrap the pipeline stages",
}

var stagesEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create any missing pipeline stage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Pipeline.EnsureStages = false

		c, err := startApp(cmd)
		if err != nil {
			return err
		}

		created, err := c.Services().Stage.EnsureStages(cmd.Context())
		if err != nil {
			return err
		}
		if len(created) == 0 {
			fmt.Fprintln(out(cmd), "All stages present")
			return nil
		}
		for _, code := range created {
			fmt.Fprintf(out(cmd), "created %s\n", code)
		}
		return nil
	},
}

var stagesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify every stage the pipeline moves tickets into exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Pipeline.EnsureStages = false

		c, err := startApp(cmd)
		if err != nil {
			return err
		}
		if err := c.Services().Stage.Check(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "All %d stages present\n", len(entity.RequiredStages))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, err := container.ProvideDatabase(cfg.Database, logger)
		if err != nil {
			return err
		}
		defer bundle.Conn.Close()

		logger.Info("Migrations applied", zap.String("database", cfg.Database.Path))
		fmt.Fprintln(out(cmd), "Database schema up to date")
		return nil
	},
}

func init() {
	stagesCmd.AddCommand(stagesEnsureCmd)
	stagesCmd.AddCommand(stagesCheckCmd)
	rootCmd.AddCommand(stagesCmd)
	rootCmd.AddCommand(migrateCmd)
}
