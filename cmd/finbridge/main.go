// finbridge — unified market-data access with provider failover.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/finbridge/finbridge/api"
	"github.com/finbridge/finbridge/internal/cache"
	"github.com/finbridge/finbridge/internal/config"
	"github.com/finbridge/finbridge/internal/provider"
	"github.com/finbridge/finbridge/internal/providers"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	cfg  *config.Config
	disp *provider.Dispatcher
	reg  *provider.Registry
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "finbridge",
	Short: "finbridge — unified market-data access with provider failover",
	Long: `finbridge is a data-access layer over multiple financial data vendors.
It serves prices, financial metrics, statement line items, insider trades,
company news and market caps through one interface, caching incrementally
and failing over between providers automatically.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		setupLogging(cfg.Logging)

		if providerFlag, _ := cmd.Flags().GetString("provider"); providerFlag != "" {
			cfg.Provider = strings.ToLower(providerFlag)
		}

		reg = providers.NewRegistry(cfg, cache.NewStore())
		disp = provider.NewDispatcher(reg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("provider", "", "default provider override (finnhub, financialdatasets, yahoo)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pricesCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(lineItemsCmd)
	rootCmd.AddCommand(insiderTradesCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(marketCapCmd)
}

// setupLogging configures the global logger from config.
func setupLogging(lc config.LoggingConfig) {
	switch strings.ToLower(lc.Level) {
	case "debug":
		log.DefaultLogger.Level = log.DebugLevel
	case "warn":
		log.DefaultLogger.Level = log.WarnLevel
	case "error":
		log.DefaultLogger.Level = log.ErrorLevel
	default:
		log.DefaultLogger.Level = log.InfoLevel
	}
	if strings.ToLower(lc.Format) != "json" {
		log.DefaultLogger.Writer = &log.ConsoleWriter{ColorOutput: true}
	}
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("finbridge %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show provider and credential status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  finbridge — Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:   %s (%s)\n", version, commit)

		defaultName, err := reg.DefaultName()
		if err != nil {
			defaultName = "unresolved: " + err.Error()
		}
		fmt.Printf("  Default:   %s\n", defaultName)
		fmt.Printf("  Providers: %s\n", strings.Join(reg.Names(), ", "))
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-30s %s\n", k.Name+":", status)
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		return api.NewServer(cfg, reg).ListenAndServe(addr)
	},
}

// --- Data Commands ---

var pricesCmd = &cobra.Command{
	Use:   "prices [ticker...]",
	Short: "Fetch daily price bars",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		startDate, _ := cmd.Flags().GetString("start")
		endDate, _ := cmd.Flags().GetString("end")
		if startDate == "" || endDate == "" {
			return fmt.Errorf("--start and --end are required")
		}

		if len(args) > 1 {
			return printJSON(disp.GetPricesMulti(cmd.Context(), args, startDate, endDate))
		}
		return printJSON(disp.GetPrices(cmd.Context(), args[0], startDate, endDate))
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics [ticker]",
	Short: "Fetch financial metrics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		endDate, _ := cmd.Flags().GetString("end")
		period, _ := cmd.Flags().GetString("period")
		limit, _ := cmd.Flags().GetInt("limit")
		return printJSON(disp.GetFinancialMetrics(cmd.Context(), args[0], endOrToday(endDate), period, limit))
	},
}

var lineItemsCmd = &cobra.Command{
	Use:   "line-items [ticker] [name...]",
	Short: "Search financial-statement line items",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		endDate, _ := cmd.Flags().GetString("end")
		period, _ := cmd.Flags().GetString("period")
		limit, _ := cmd.Flags().GetInt("limit")
		return printJSON(disp.SearchLineItems(cmd.Context(), args[0], args[1:], endOrToday(endDate), period, limit))
	},
}

var insiderTradesCmd = &cobra.Command{
	Use:   "insider-trades [ticker]",
	Short: "Fetch insider transactions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		endDate, _ := cmd.Flags().GetString("end")
		startDate, _ := cmd.Flags().GetString("start")
		limit, _ := cmd.Flags().GetInt("limit")
		return printJSON(disp.GetInsiderTrades(cmd.Context(), args[0], endOrToday(endDate), startDate, limit))
	},
}

var newsCmd = &cobra.Command{
	Use:   "news [ticker]",
	Short: "Fetch company news",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		endDate, _ := cmd.Flags().GetString("end")
		startDate, _ := cmd.Flags().GetString("start")
		limit, _ := cmd.Flags().GetInt("limit")
		return printJSON(disp.GetCompanyNews(cmd.Context(), args[0], endOrToday(endDate), startDate, limit))
	},
}

var marketCapCmd = &cobra.Command{
	Use:   "market-cap [ticker]",
	Short: "Fetch market capitalization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		endDate, _ := cmd.Flags().GetString("end")
		value, ok := disp.GetMarketCap(cmd.Context(), args[0], endOrToday(endDate))
		if !ok {
			fmt.Printf("%s: no market cap available\n", args[0])
			return nil
		}
		fmt.Printf("%s: %.0f\n", args[0], value)
		return nil
	},
}

func init() {
	pricesCmd.Flags().String("start", "", "start date (YYYY-MM-DD)")
	pricesCmd.Flags().String("end", "", "end date (YYYY-MM-DD)")

	for _, c := range []*cobra.Command{metricsCmd, lineItemsCmd} {
		c.Flags().String("end", "", "end date (YYYY-MM-DD, default today)")
		c.Flags().String("period", "ttm", "reporting period (ttm, annual, quarterly)")
		c.Flags().Int("limit", 10, "maximum rows")
	}
	for _, c := range []*cobra.Command{insiderTradesCmd, newsCmd} {
		c.Flags().String("start", "", "start date (YYYY-MM-DD)")
		c.Flags().String("end", "", "end date (YYYY-MM-DD, default today)")
		c.Flags().Int("limit", 100, "maximum rows")
	}
	marketCapCmd.Flags().String("end", "", "end date (YYYY-MM-DD, default today)")
}

func endOrToday(endDate string) string {
	if endDate != "" {
		return endDate
	}
	return time.Now().UTC().Format("2006-01-02")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
