package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/frahmantamala/finsolve-gateway/internal/audit"
	auditPostgres "github.com/frahmantamala/finsolve-gateway/internal/audit/postgres"
	"github.com/frahmantamala/finsolve-gateway/internal/core/events"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the access audit trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent access events",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listAuditEvents(cmd.Context())
	},
}

var auditSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Count access events by type and outcome",
	RunE: func(cmd *cobra.Command, args []string) error {
		return summarizeAuditEvents(cmd.Context())
	},
}

var auditTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "Print the event types the trail records",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range events.AccessEventTypes {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
	},
}

var (
	auditType  string
	auditActor string
	auditLimit int
	auditSince time.Duration
)

func init() {
	auditListCmd.Flags().StringVar(&auditType, "type", "", "only events of this type")
	auditListCmd.Flags().StringVar(&auditActor, "actor", "", "only events by this username")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", audit.DefaultLimit, "maximum number of events")
	auditListCmd.Flags().DurationVar(&auditSince, "since", 0, "only events newer than this lookback, e.g. 2h")
	auditSummaryCmd.Flags().DurationVar(&auditSince, "since", 24*time.Hour, "lookback window")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditSummaryCmd)
	auditCmd.AddCommand(auditTypesCmd)
}

func listAuditEvents(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	initLogger(cfg)

	db, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	gormDB, err := initGorm(db)
	if err != nil {
		return err
	}

	filter := audit.Filter{Type: auditType, Actor: auditActor, Limit: auditLimit}
	if auditSince > 0 {
		filter.Since = time.Now().Add(-auditSince)
	}
	if filter.Limit <= 0 || filter.Limit > audit.MaxLimit {
		filter.Limit = audit.MaxLimit
	}

	rows, err := auditPostgres.NewAuditRepository(gormDB).List(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list audit events: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OCCURRED\tTYPE\tACTOR\tROLE\tTARGET\tOUTCOME\tDETAIL")
	for _, row := range rows {
		e := audit.FromDataModel(row)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.OccurredAt.Format(time.RFC3339), e.Type, e.Actor, e.Role, e.Target, e.Outcome, e.Detail)
	}
	return tw.Flush()
}

func summarizeAuditEvents(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	initLogger(cfg)

	db, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	counts, err := auditPostgres.NewSummaryRepository(db).CountByType(ctx, time.Now().Add(-auditSince))
	if err != nil {
		return fmt.Errorf("failed to summarize audit events: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tOUTCOME\tCOUNT")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Type, c.Outcome, c.Count)
	}
	return tw.Flush()
}
