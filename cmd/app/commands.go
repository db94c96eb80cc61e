package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"equidify/internal/app"
	"equidify/internal/domain"
	"equidify/internal/infra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "equidify",
	Short: "Live stock quotes, watchlist and market status",
	Long: `Equidify keeps a stock dashboard's data fresh: it streams live trades
for watched symbols, caches REST quotes and company profiles, and polls
market indices and the watchlist on a fixed schedule.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stream live prices and poll the dashboard until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := bootstrap()
		if err != nil {
			return err
		}
		defer b.Close()

		// Graceful Shutdown Context
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return b.Run(ctx)
	},
}

var quoteCmd = &cobra.Command{
	Use:   "quote SYMBOL",
	Short: "Print the latest quote and company profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := bootstrap()
		if err != nil {
			return err
		}
		defer b.Close()

		ctx, cancel := commandContext()
		defer cancel()

		q, p := b.Quotes.GetQuoteAndProfile(ctx, args[0])
		if q == nil {
			return fmt.Errorf("no quote for %s", domain.NormalizeSymbol(args[0]))
		}
		printQuote(cmd, domain.NormalizeSymbol(args[0]), q, p)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search symbols, falling back to a direct quote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := bootstrap()
		if err != nil {
			return err
		}
		defer b.Close()

		ctx, cancel := commandContext()
		defer cancel()

		res := b.Quotes.Lookup(ctx, args[0])
		switch {
		case len(res.Results) > 0:
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range res.Results {
				fmt.Fprintf(w, "%s\t%s\n", r.Symbol, r.Description)
			}
			return w.Flush()
		case res.Found():
			printQuote(cmd, res.Query, res.Quote, res.Profile)
			return nil
		default:
			fmt.Fprintln(cmd.OutOrStdout(), "No results found")
			return nil
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the US market session status",
	RunE: func(cmd *cobra.Command, args []string) error {
		status := domain.MarketStatusAt(time.Now())
		fmt.Fprintln(cmd.OutOrStdout(), status.Label())
		return nil
	},
}

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Manage the watchlist",
}

var watchlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show watched symbols with their latest quote",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := bootstrap()
		if err != nil {
			return err
		}
		defer b.Close()

		ctx, cancel := commandContext()
		defer cancel()

		rows := b.Watchlist.Refresh(ctx)
		if len(rows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Your watchlist is empty")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, row := range rows {
			price := "--"
			if row.Quote != nil {
				price = infra.FormatCurrency(row.Quote.Price)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.Item.Symbol, row.Item.Name, price, infra.FormatPercent(row.ChangePct))
		}
		return w.Flush()
	},
}

var watchlistAddCmd = &cobra.Command{
	Use:   "add SYMBOL [NAME]",
	Short: "Add a symbol to the watchlist",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := bootstrap()
		if err != nil {
			return err
		}
		defer b.Close()

		name := ""
		if len(args) == 2 {
			name = args[1]
		} else {
			ctx, cancel := commandContext()
			defer cancel()
			if p := b.Quotes.GetProfile(ctx, args[0]); p != nil {
				name = p.Name
			}
		}

		err = b.Watchlist.Add(args[0], name)
		if errors.Is(err, domain.ErrAlreadyInWatchlist) {
			return nil
		}
		return err
	},
}

var watchlistRemoveCmd = &cobra.Command{
	Use:   "remove SYMBOL",
	Short: "Remove a symbol from the watchlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := bootstrap()
		if err != nil {
			return err
		}
		defer b.Close()

		return b.Watchlist.Remove(args[0])
	},
}

var tradeCmd = &cobra.Command{
	Use:   "trade SYMBOL [buy|sell]",
	Short: "Start a trade (not implemented yet)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := bootstrap()
		if err != nil {
			return err
		}
		defer b.Close()

		side := ""
		if len(args) == 2 {
			side = args[1]
		}
		return b.Dashboard.StartTrade(args[0], side)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", app.DefaultConfigPath, "path to config file")

	watchlistCmd.AddCommand(watchlistListCmd, watchlistAddCmd, watchlistRemoveCmd)
	rootCmd.AddCommand(runCmd, quoteCmd, searchCmd, statusCmd, watchlistCmd, tradeCmd)
}

func bootstrap() (*app.Bootstrap, error) {
	b := app.NewBootstrap(configPath)
	if err := b.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		return nil, err
	}
	return b, nil
}

func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	return ctx, func() {
		cancel()
		stop()
	}
}

func printQuote(cmd *cobra.Command, symbol string, q *domain.Quote, p *domain.Profile) {
	name := symbol
	if p != nil && p.Name != "" {
		name = p.Name
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", name, symbol)
	fmt.Fprintf(out, "  Price:          %s  %s (%s)\n",
		infra.FormatCurrency(q.Price), infra.FormatCurrency(q.DayChange()), infra.FormatPercent(q.DayChangePct()))
	fmt.Fprintf(out, "  Open:           %s\n", infra.FormatCurrency(q.Open))
	fmt.Fprintf(out, "  High:           %s\n", infra.FormatCurrency(q.High))
	fmt.Fprintf(out, "  Low:            %s\n", infra.FormatCurrency(q.Low))
	fmt.Fprintf(out, "  Previous Close: %s\n", infra.FormatCurrency(q.PreviousClose))
}
