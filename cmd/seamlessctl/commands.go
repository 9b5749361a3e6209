package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	eventtracking "seamless/contexts/payment-core/event-tracking"
	httpadapter "seamless/contexts/payment-core/event-tracking/adapters/http"
	trackingapp "seamless/contexts/payment-core/event-tracking/application"
	"seamless/contexts/payment-core/event-tracking/domain/entities"
	httptransport "seamless/contexts/payment-core/event-tracking/transport/http"
	"seamless/internal/app/bootstrap"
	"seamless/internal/platform/config"

	"github.com/spf13/cobra"
)

type cliOptions struct {
	configPath string
	jsonOutput bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &cliOptions{}
	rootCmd := &cobra.Command{
		Use:           "seamlessctl",
		Short:         "Operate the payment audit trail",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (defaults to $SEAMLESS_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(migrateCmd(opts))
	rootCmd.AddCommand(eventsCmd(opts))
	rootCmd.AddCommand(transactionCmd(opts))
	rootCmd.AddCommand(customerCmd(opts))
	rootCmd.AddCommand(resourceCmd(opts))
	return rootCmd
}

func migrateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the transaction record schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, tracking, err := openTracking(opts)
			if err != nil {
				return err
			}
			defer tracking.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", cfg.Database.Driver)
			return nil
		},
	}
}

func eventsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "events <transaction-id>",
		Short: "List every event of a transaction in causal order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandler(opts, func(ctx context.Context, handler httpadapter.Handler) error {
				resp, err := handler.ListTransactionEventsHandler(ctx, args[0])
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), opts, resp.Data)
			})
		},
	}
}

func transactionCmd(opts *cliOptions) *cobra.Command {
	var processor string
	cmd := &cobra.Command{
		Use:   "transaction <transaction-id>",
		Short: "Show the latest record of a transaction for one processor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandler(opts, func(ctx context.Context, handler httpadapter.Handler) error {
				resp, err := handler.GetTransactionHandler(ctx, args[0], processor)
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), opts, []httptransport.TransactionRecordDTO{resp.Data})
			})
		},
	}
	cmd.Flags().StringVarP(&processor, "processor", "p", string(entities.ProcessorStripe), "Processor (paypal, stripe)")
	return cmd
}

func customerCmd(opts *cliOptions) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "customer <customer-id>",
		Short: "List a customer's records, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandler(opts, func(ctx context.Context, handler httpadapter.Handler) error {
				resp, err := handler.CustomerTransactionsHandler(ctx, httptransport.CustomerTransactionsRequest{
					CustomerID: args[0],
					Limit:      limit,
					Offset:     offset,
				})
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), opts, resp.Data)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum records")
	cmd.Flags().IntVar(&offset, "offset", 0, "Records to skip")
	return cmd
}

func resourceCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resource <processor> <resource-id>",
		Short: "List every record about one vendor resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := trackingapp.ParseProcessor(args[0]); err != nil {
				return err
			}
			return withHandler(opts, func(ctx context.Context, handler httpadapter.Handler) error {
				resp, err := handler.ResourceRecordsHandler(ctx, httptransport.ResourceRecordsRequest{
					ResourceID: args[1],
					Processor:  args[0],
				})
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), opts, resp.Data)
			})
		},
	}
}

func openTracking(opts *cliOptions) (config.Config, eventtracking.Module, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return config.Config{}, eventtracking.Module{}, err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracking, _, err := bootstrap.OpenTracking(cfg, logger)
	if err != nil {
		return config.Config{}, eventtracking.Module{}, err
	}
	return cfg, tracking, nil
}

func withHandler(opts *cliOptions, fn func(ctx context.Context, handler httpadapter.Handler) error) error {
	_, tracking, err := openTracking(opts)
	if err != nil {
		return err
	}
	defer tracking.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return fn(ctx, tracking.Handler)
}

func printRecords(out io.Writer, opts *cliOptions, records []httptransport.TransactionRecordDTO) error {
	if opts.jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "no records")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tTRANSACTION\tEVENT\tTYPE\tRESOURCE\tSTATUS\tAMOUNT\tPARENT")
	for _, record := range records {
		amount := "-"
		if record.Amount != nil {
			amount = fmt.Sprintf("%.2f %s", *record.Amount, record.Currency)
		}
		parent := record.ParentEventID
		if parent == "" {
			parent = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			record.CreatedAt,
			record.TransactionID,
			record.EventID,
			record.EventType,
			record.ResourceID,
			record.Status,
			amount,
			parent,
		)
	}
	return w.Flush()
}
