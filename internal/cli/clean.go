package cli

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datacleaner/internal/advisor"
	"github.com/JonMunkholm/datacleaner/internal/core"
	"github.com/JonMunkholm/datacleaner/internal/logging"
	"github.com/JonMunkholm/datacleaner/internal/source"
)

type cleanFlags struct {
	src            sourceFlags
	output         string
	writeTable     string
	replace        bool
	advisor        string
	removeOutliers bool
}

func newCleanCommand(a *app) *cobra.Command {
	var f cleanFlags

	cmd := &cobra.Command{
		Use:   "clean [file.csv]",
		Short: "Run the full cleaning pipeline over a dataset",
		Example: `  cleanctl clean students.csv --output students_clean.csv
  cleanctl clean --sqlite school.db --table students -o json
  cleanctl clean --table public.students --write-table public.students_clean --replace`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			opts, err := LoadOptions(a.configFile, a.cfg)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("remove-outliers") {
				opts.RemoveOutliers = f.removeOutliers
			}
			if f.advisor != "" {
				a.cfg.Advisor.Provider = f.advisor
			}
			adv, err := advisor.New(a.cfg.Advisor)
			if err != nil {
				return err
			}

			ds, origin, err := a.load(ctx, f.src, args)
			if err != nil {
				return err
			}

			runID := uuid.New().String()
			logger := logging.WithFields(ctx,
				slog.String("run_id", runID),
				slog.String("dataset", ds.Name),
				slog.String("source", origin),
			)
			ctx = logging.NewContext(ctx, logger)

			start := time.Now()
			res, err := core.NewPipeline(adv, opts).Run(ctx, ds)
			if err != nil {
				return err
			}
			logger.Info("run finished",
				slog.String("stage", string(res.Stage)),
				slog.Duration("elapsed", time.Since(start)),
			)

			if f.output != "" {
				if err := source.WriteFile(f.output, res.Dataset); err != nil {
					return err
				}
				logger.Info("wrote cleaned dataset", slog.String("path", f.output))
			}
			if f.writeTable != "" {
				n, err := a.writeTable(ctx, f.writeTable, res.Dataset, f.replace)
				if err != nil {
					return err
				}
				logger.Info("wrote cleaned table", slog.String("table", f.writeTable), slog.Int64("rows", n))
			}

			return writeResult(cmd.OutOrStdout(), res, a.format)
		},
	}

	f.src.register(cmd)
	fl := cmd.Flags()
	fl.StringVar(&f.output, "output", "", "write the cleaned dataset to this CSV (.csv.gz compresses)")
	fl.StringVar(&f.writeTable, "write-table", "", "write the cleaned dataset to this PostgreSQL table")
	fl.BoolVar(&f.replace, "replace", false, "drop --write-table before writing")
	fl.StringVar(&f.advisor, "advisor", "", "advisor provider: none, heuristic, gemini (overrides ADVISOR_PROVIDER)")
	fl.BoolVar(&f.removeOutliers, "remove-outliers", false, "remove outliers after imputation")
	return cmd
}

func newProfileCommand(a *app) *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "profile [file.csv]",
		Short: "Print shape, types, missing values and samples without cleaning",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, _, err := a.load(cmd.Context(), src, args)
			if err != nil {
				return err
			}
			return writeProfile(cmd.OutOrStdout(), core.ProfileDataset(ds), a.format)
		},
	}
	src.register(cmd)
	return cmd
}
