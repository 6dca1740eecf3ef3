package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"route-audit-service/internal/adapters/storage"
	"route-audit-service/internal/domain"
	"route-audit-service/internal/services"
	"strings"

	"github.com/spf13/cobra"
)

func (a *App) initDBCommand() *cobra.Command {
	var seed string
	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Prepare the snapshot store, optionally seeding it from JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if seed == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Store ready (%s).\n", a.cfg.StoreDriver)
				return nil
			}
			n, err := storage.SeedFromJSON(cmd.Context(), a.store, seed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d routes from %s.\n", n, seed)
			return nil
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "serialized route collection to store")
	return cmd
}

func (a *App) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import every route found in a saved operational-system page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			res, err := a.engine.ImportDocument(cmd.Context(), string(doc))
			out := cmd.OutOrStdout()
			if errors.Is(err, domain.ErrNothingImported) {
				fmt.Fprintf(out, "No routes imported (%d anchors found).\n", res.Anchors)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Imported %d of %d routes: %s\n", res.Imported, res.Anchors, strings.Join(res.RouteIDs, ", "))
			if len(res.Skipped) > 0 {
				fmt.Fprintf(out, "Skipped: %s\n", strings.Join(res.Skipped, ", "))
			}
			return nil
		},
	}
}

func (a *App) routesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List stored routes with their progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			routes := a.engine.Routes()
			out := cmd.OutOrStdout()
			if len(routes) == 0 {
				fmt.Fprintln(out, "No routes stored")
				return nil
			}
			for _, r := range routes {
				fmt.Fprintf(out, "%s\t%d%%\tpending %d\treceived %d\tout of route %d\n",
					r.Label, r.ProgressPercent, len(r.Pending), len(r.Confirmed), len(r.OutOfRoute))
			}
			return nil
		},
	}
}

func (a *App) scanCommand() *cobra.Command {
	var routeID, provenance string
	cmd := &cobra.Command{
		Use:   "scan --route ID CODE...",
		Short: "Reconcile scanned codes against a route",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := domain.ParseProvenance(provenance)
			if err != nil {
				return err
			}
			if err := a.selectRoute(cmd.Context(), routeID); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, raw := range args {
				res := a.engine.SubmitScan(cmd.Context(), raw, p)
				if res.Ignored {
					fmt.Fprintf(out, "%s\tignored: %s\n", raw, res.Reason)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\tpending %d\n", res.Code, res.Classification, res.Pending)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&routeID, "route", "", "route id")
	cmd.Flags().StringVar(&provenance, "provenance", string(domain.ProvenanceScanner), "manual, scanner or bulk-import")
	_ = cmd.MarkFlagRequired("route")
	return cmd
}

func (a *App) ingestCommand() *cobra.Command {
	var routeID string
	cmd := &cobra.Command{
		Use:   "ingest --route ID FILE",
		Short: "Reconcile one identifier per line of a CSV file without alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.selectRoute(cmd.Context(), routeID); err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer f.Close()

			res, err := a.engine.IngestCSV(cmd.Context(), f)
			fmt.Fprintf(cmd.OutOrStdout(), "Route %s: %d lines, %d new, %d duplicates, %d out of route, %d ignored\n",
				res.RouteID, res.Lines, res.NewMatches, res.Duplicates, res.OutOfRoute, res.Ignored)
			return err
		},
	}
	cmd.Flags().StringVar(&routeID, "route", "", "route id")
	_ = cmd.MarkFlagRequired("route")
	return cmd
}

func (a *App) manualCommand() *cobra.Command {
	var routeID string
	cmd := &cobra.Command{
		Use:   "manual --route ID IDS",
		Short: "Add identifiers to a route's pending manifest",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.selectRoute(cmd.Context(), routeID); err != nil {
				return err
			}
			added, err := a.engine.AddManualIDs(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d identifiers.\n", added)
			return nil
		},
	}
	cmd.Flags().StringVar(&routeID, "route", "", "route id")
	_ = cmd.MarkFlagRequired("route")
	return cmd
}

func (a *App) summaryCommand() *cobra.Command {
	var routeID string
	var noOutOfRoute bool
	cmd := &cobra.Command{
		Use:   "summary --route ID",
		Short: "Print the text summary of a route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.selectRoute(cmd.Context(), routeID); err != nil {
				return err
			}
			text, err := a.engine.Summary(services.SummaryOptions{IncludeOutOfRoute: !noOutOfRoute})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&routeID, "route", "", "route id")
	cmd.Flags().BoolVar(&noOutOfRoute, "no-out-of-route", false, "omit the out-of-route list")
	_ = cmd.MarkFlagRequired("route")
	return cmd
}

func (a *App) exportCommand() *cobra.Command {
	var routeID, dir string
	var all bool
	cmd := &cobra.Command{
		Use:   "export [--route ID | --all]",
		Short: "Write the reconciliation spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var buf bytes.Buffer
			var name string
			var err error
			if all {
				name, err = a.engine.ExportAll(&buf)
			} else {
				if err := a.selectRoute(cmd.Context(), routeID); err != nil {
					return err
				}
				name, err = a.engine.ExportCurrent(&buf)
			}
			if err != nil {
				return err
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&routeID, "route", "", "route id")
	cmd.Flags().BoolVar(&all, "all", false, "export every route into one workbook")
	cmd.Flags().StringVarP(&dir, "output-dir", "o", ".", "directory for the workbook")
	cmd.MarkFlagsMutuallyExclusive("route", "all")
	cmd.MarkFlagsOneRequired("route", "all")
	return cmd
}

func (a *App) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one route",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.engine.DeleteRoute(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted route %s.\n", args[0])
			return nil
		},
	}
}

func (a *App) clearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.engine.ClearRoutes(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "All routes deleted.")
			return nil
		},
	}
}

func (a *App) closingCommand() *cobra.Command {
	var in services.ClosingInput
	cmd := &cobra.Command{
		Use:   "closing --routes a,b",
		Short: "Print the daily closing report for the given routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.engine.Closing(in))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&in.RouteIDs, "routes", nil, "comma-separated route ids")
	f.StringVar(&in.Date, "date", "", "closing date (YYYY-MM-DD)")
	f.StringVar(&in.Base, "base", "", "base")
	f.StringVar(&in.Cycle, "cycle", "", "cycle")
	f.StringVar(&in.Requested, "requested", "", "requested routes")
	f.StringVar(&in.Loaded, "loaded", "", "loaded routes")
	f.StringVar(&in.Carrier, "carrier", "", "carrier figure (defaults to pending total)")
	f.StringVar(&in.NoShow, "no-show", "", "no-show figure")
	f.StringVar(&in.Backups, "backups", "", "backup figure")
	f.StringVar(&in.Ambulance, "ambulance", "", "ambulance figure")
	f.StringVar(&in.Performance, "performance", "", "performance")
	f.StringVar(&in.Pending, "pending", "", "pending figure (defaults to pending total)")
	f.StringVar(&in.Failures, "failures", "", "failures")
	f.StringVar(&in.Complaints, "complaints", "", "complaints")
	f.StringVar(&in.TotalPackages, "total-packages", "", "total packages (defaults to pending total)")
	f.StringVar(&in.TotalFailures, "total-failures", "", "total failures (defaults to pending total)")
	_ = cmd.MarkFlagRequired("routes")
	return cmd
}
