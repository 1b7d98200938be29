// main.go - Admin control tool for shopsignals
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"shopsignals/internal"
	"shopsignals/internal/analytics"
	"shopsignals/internal/seeder"
)

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given app and args
	Execute(ctx context.Context, app *internal.Application, args []string) error
}

// The set of available commands
var commands = []Command{
	&MigrateCommand{},
	&SeedCommand{},
	&ReportCommand{},
	&StatusCommand{},
	&HelpCommand{},
}

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env file: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	cmdName, args := parseArgs()

	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	// help does not need a database
	var app *internal.Application
	if _, isHelp := cmd.(*HelpCommand); !isHelp {
		var err error
		app, err = internal.NewApp()
		if err != nil {
			log.Printf("Warning: Failed to initialize app: %v", err)
			log.Println("Proceeding with limited functionality...")
		}
	}

	defer func() {
		// The server never started, so only the store needs releasing.
		if app != nil {
			if err := app.Pipeline.Close(); err != nil {
				log.Printf("Warning: Cleanup error: %v", err)
			}
		}
	}()

	if err := cmd.Execute(ctx, app, args); err != nil {
		log.Fatalf("Command failed: %v", err)
	}

	log.Printf("Command %s completed successfully", cmd.Name())
}

// MigrateCommand runs database migrations
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("app initialization failed, cannot run migrations")
	}

	log.Println("Running database migrations...")
	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Println("Migrations completed successfully")
	return nil
}

// SeedCommand populates the event store with synthetic storefront sessions
type SeedCommand struct{}

func (c *SeedCommand) Name() string        { return "seed" }
func (c *SeedCommand) Description() string { return "Seeds the event store with synthetic sessions" }

func (c *SeedCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	sessions := fs.Int("sessions", 2000, "number of sessions to generate")
	days := fs.Int("days", 30, "spread sessions over the last N days")
	seed := fs.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if app == nil {
		return fmt.Errorf("unable to initialise app")
	}
	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	res, err := seeder.NewSeeder(app.Pipeline.Sink, slog.Default(), *sessions, *days, *seed).Run(ctx)
	if err != nil {
		return err
	}
	if res.DeadLettered > 0 {
		return fmt.Errorf("%d seeded events could not be stored", res.DeadLettered)
	}
	return nil
}

// ReportCommand prints the overview report for a date range
type ReportCommand struct{}

func (c *ReportCommand) Name() string        { return "report" }
func (c *ReportCommand) Description() string { return "Prints the overview report (-from, -to, -tz, -json)" }

func (c *ReportCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	from := fs.String("from", "", "start date (YYYY-MM-DD)")
	to := fs.String("to", "", "end date (YYYY-MM-DD)")
	tz := fs.String("tz", "", "IANA timezone")
	device := fs.String("device", "", "device type filter")
	source := fs.String("source", "", "traffic source filter")
	asJSON := fs.Bool("json", !term.IsTerminal(int(os.Stdout.Fd())), "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if app == nil {
		return fmt.Errorf("unable to initialise app")
	}

	params, err := analytics.RequestQuery{From: *from, To: *to, Tz: *tz, Device: *device, Source: *source}.Params(app.Pipeline.Parser)
	if err != nil {
		return err
	}
	overview, err := app.Pipeline.Reporter.Overview(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(overview)
	}
	return printOverview(overview)
}

func printOverview(o analytics.Overview) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Period\t%s .. %s (%s)\n", o.From.Format(time.DateOnly), o.To.Format(time.DateOnly), o.Timezone)
	fmt.Fprintf(w, "Events\t%d\n", o.EventCount)
	if o.Truncated {
		fmt.Fprintln(w, "\t(truncated at the row limit)")
	}
	fmt.Fprintln(w)

	k := o.KPIs
	fmt.Fprintln(w, "KPI\tValue\tPrevious")
	fmt.Fprintf(w, "Sessions\t%d\t%d\n", k.Sessions, o.PreviousKPIs.Sessions)
	fmt.Fprintf(w, "Unique users\t%d\t%d\n", k.UniqueUsers, o.PreviousKPIs.UniqueUsers)
	fmt.Fprintf(w, "Product views\t%d\t%d\n", k.ProductViews, o.PreviousKPIs.ProductViews)
	fmt.Fprintf(w, "Add to cart\t%d\t%d\n", k.AddToCart, o.PreviousKPIs.AddToCart)
	fmt.Fprintf(w, "Checkout starts\t%d\t%d\n", k.CheckoutStarts, o.PreviousKPIs.CheckoutStarts)
	fmt.Fprintf(w, "WhatsApp redirects\t%d\t%d\n", k.WhatsAppRedirects, o.PreviousKPIs.WhatsAppRedirects)
	fmt.Fprintf(w, "Conversion rate\t%.2f%%\t%.2f%%\n", k.ConversionRate, o.PreviousKPIs.ConversionRate)
	fmt.Fprintf(w, "Cart abandonment\t%.2f%%\t%.2f%%\n", k.CartAbandonmentRate, o.PreviousKPIs.CartAbandonmentRate)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Funnel step\tCount\tAdvance\tDrop")
	for _, s := range o.Funnel.Steps {
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%.1f%%\n", s.Label, s.Count, s.AdvanceRate, s.DropRate)
	}
	if o.Funnel.LargestDrop != nil {
		fmt.Fprintf(w, "Largest drop\t%s\t\t%.1f%%\n", o.Funnel.LargestDrop.Label, o.Funnel.LargestDrop.DropRate)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Top referrer\tCount")
	for _, r := range o.TopReferrers {
		fmt.Fprintf(w, "%s\t%d\n", r.Name, r.Count)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Country\tSessions")
	for _, c := range o.Countries {
		fmt.Fprintf(w, "%s (%s)\t%d\n", c.Name, c.Code, c.Sessions)
	}

	return w.Flush()
}

// StatusCommand implements a command to check the system status
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Shows the current system status" }

func (c *StatusCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("cannot check status: app initialization failed")
	}

	db := app.DBManager.GetConnection()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	cfg := app.Pipeline.Config
	log.Println("System Status:")
	log.Println("- Database: Connected")
	log.Printf("- Event store: %s", cfg.StoreBackend)
	if err := app.Pipeline.Ping(ctx); err != nil {
		log.Printf("- Event store ping: %v", err)
	}
	log.Printf("- GeoIP: %t", app.Pipeline.Locator.Enabled())
	if cfg.Forwarding() {
		log.Printf("- Forwarding events to: %s", cfg.ForwardEndpoint)
	}

	params, err := analytics.RequestQuery{}.Params(app.Pipeline.Parser)
	if err != nil {
		return err
	}
	sessions, err := app.Pipeline.Fetcher.GetUniqueSessions(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to count sessions: %w", err)
	}
	counts, err := app.Pipeline.Fetcher.GetEventCounts(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to count events: %w", err)
	}
	var total int64
	for _, n := range counts {
		total += int64(n)
	}
	log.Printf("- Events (default range): %d", total)
	log.Printf("- Sessions (default range): %d", sessions)

	log.Printf("- Max Open Connections: %d", sqlDB.Stats().MaxOpenConnections)
	log.Printf("- Open Connections: %d", sqlDB.Stats().OpenConnections)
	log.Printf("- In Use: %d", sqlDB.Stats().InUse)
	log.Printf("- Idle: %d", sqlDB.Stats().Idle)

	return nil
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows usage information" }

func (c *HelpCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	printUsage()
	return nil
}

// parseArgs parses the command name and arguments
func parseArgs() (string, []string) {
	args := os.Args[1:]
	if len(args) == 0 {
		return "help", []string{}
	}
	return args[0], args[1:]
}

// findCommand finds a command by name
func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: ssctl [command] [args...]")
	fmt.Println("Available commands:")

	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}
}

// showUsageAndExit shows usage information and exits
func showUsageAndExit() {
	printUsage()
	os.Exit(1)
}
