package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/noah-isme/sales-report-api/internal/client"
	"github.com/noah-isme/sales-report-api/internal/dto"
	"github.com/noah-isme/sales-report-api/internal/models"
)

const defaultServer = "http://localhost:8080/api"

type filterFlags struct {
	date, start, end       string
	category, user, region string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "exact date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.start, "start", "", "range start, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "range end, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.category, "category", "", "category (Sales, HR, Finance)")
	cmd.Flags().StringVar(&f.user, "user", "", "user substring")
	cmd.Flags().StringVar(&f.region, "region", "", "region substring")
}

func (f *filterFlags) filter() (models.ReportFilter, error) {
	out := models.ReportFilter{Category: f.category, User: f.user, Region: f.region}
	for _, p := range []struct {
		name string
		raw  string
		dest **models.Date
	}{
		{"date", f.date, &out.Date},
		{"start", f.start, &out.StartDate},
		{"end", f.end, &out.EndDate},
	} {
		if p.raw == "" {
			continue
		}
		d, err := models.ParseDate(p.raw)
		if err != nil {
			return models.ReportFilter{}, fmt.Errorf("--%s: %w", p.name, err)
		}
		*p.dest = &d
	}
	return out, nil
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("REPORTCTL")
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Command-line client for the sales report API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("server", defaultServer, "API base URL (env REPORTCTL_SERVER)")
	_ = v.BindPFlag("server", root.PersistentFlags().Lookup("server"))

	api := func() *client.APIClient {
		return client.NewAPIClient(v.GetString("server"))
	}

	root.AddCommand(
		newReportsCommand(api),
		newExportCommand(api),
		newScheduleCommand(api),
		newSchedulesCommand(api),
		newHealthCommand(api),
	)
	return root
}

func newReportsCommand(api func() *client.APIClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List and add report records",
	}

	var filters filterFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List report records",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filters.filter()
			if err != nil {
				return err
			}
			records, err := api().ListReports(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printReports(cmd.OutOrStdout(), records)
			return nil
		},
	}
	filters.register(list)

	var (
		req    dto.CreateReportRequest
		amount string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Insert a report record",
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("--amount: %w", err)
			}
			req.Amount = &value
			report, err := api().CreateReport(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created report %d\n", report.ID)
			return nil
		},
	}
	add.Flags().StringVar(&req.Date, "date", time.Now().Format(models.DateLayout), "record date (YYYY-MM-DD)")
	add.Flags().StringVar(&req.Category, "category", "", "category (Sales, HR, Finance)")
	add.Flags().StringVar(&amount, "amount", "", "amount, e.g. 1250.00")
	add.Flags().StringVar(&req.User, "user", "", "user")
	add.Flags().StringVar(&req.Region, "region", "", "region")
	_ = add.MarkFlagRequired("category")
	_ = add.MarkFlagRequired("amount")
	_ = add.MarkFlagRequired("user")
	_ = add.MarkFlagRequired("region")

	cmd.AddCommand(list, add)
	return cmd
}

func newExportCommand(api func() *client.APIClient) *cobra.Command {
	var (
		filters filterFlags
		out     string
	)
	cmd := &cobra.Command{
		Use:       "export <pdf|excel|csv>",
		Short:     "Download records matching the filters as a file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"pdf", "excel", "csv"},
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filters.filter()
			if err != nil {
				return err
			}
			dl, err := api().Export(cmd.Context(), args[0], dto.ExportRequest{Filters: &filter})
			if err != nil {
				return err
			}
			path := out
			if path == "" {
				path = dl.Filename
			}
			if path == "" {
				return errors.New("server did not name the file, pass --out")
			}
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, dl.Filename)
			}
			if err := os.WriteFile(path, dl.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(dl.Data))
			return nil
		},
	}
	filters.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory")
	return cmd
}

func newScheduleCommand(api func() *client.APIClient) *cobra.Command {
	var (
		filters   filterFlags
		email     string
		frequency string
		cronExpr  string
		format    string
		now       bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Email a report now or register a recurring delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filters.filter()
			if err != nil {
				return err
			}
			c := api()
			req := dto.ScheduleReportRequest{Email: email, Format: models.ReportFormat(strings.ToLower(format))}
			if now {
				records, err := c.ListReports(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					return errors.New("no records match the filters")
				}
				req.ReportData = records
			} else {
				if frequency == "" && cronExpr == "" {
					return errors.New("one of --frequency, --cron or --now is required")
				}
				req.Frequency = frequency
				req.Cron = cronExpr
				req.ReportConfig = &dto.ReportConfig{Filters: filter, Format: req.Format}
			}

			resp, err := c.Schedule(cmd.Context(), req)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, resp.Message)
			if resp.ID != "" {
				fmt.Fprintf(w, "ID: %s\n", resp.ID)
			}
			if resp.NextRun != nil {
				fmt.Fprintf(w, "Next run: %s\n", resp.NextRun.Format(time.RFC3339))
			}
			return nil
		},
	}
	filters.register(cmd)
	cmd.Flags().StringVar(&email, "email", "", "recipient address")
	cmd.Flags().StringVar(&frequency, "frequency", "", "hourly, daily, weekly or monthly")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "five-field cron expression")
	cmd.Flags().StringVar(&format, "format", "", "attachment format (pdf, excel, csv)")
	cmd.Flags().BoolVar(&now, "now", false, "send matching records immediately")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSchedulesCommand(api func() *client.APIClient) *cobra.Command {
	return &cobra.Command{
		Use:   "schedules",
		Short: "List recurring deliveries",
		RunE: func(cmd *cobra.Command, args []string) error {
			schedules, err := api().ListSchedules(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "ID\tEMAIL\tCRON\tFORMAT\tNEXT RUN\tLAST STATUS\t")
			for _, s := range schedules {
				next, status := "-", "-"
				if s.NextRunAt != nil {
					next = s.NextRunAt.Format(time.RFC3339)
				}
				if s.LastStatus != nil {
					status = string(*s.LastStatus)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n", s.ID, s.Email, s.CronExpression, s.Format, next, status)
			}
			return w.Flush()
		},
	}
}

func newHealthCommand(api func() *client.APIClient) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := api().Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%v %v (%v) status=%v uptime=%v\n",
				health["service"], health["version"], health["env"], health["status"], health["uptime"])
			return nil
		},
	}
}

func printReports(out io.Writer, records []models.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.TabIndent)
	fmt.Fprintln(w, "ID\tDATE\tCATEGORY\tAMOUNT\tUSER\tREGION\t")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t\n", r.ID, r.Date, r.Category, r.FormattedAmount(), r.User, r.Region)
	}
	w.Flush()
}
