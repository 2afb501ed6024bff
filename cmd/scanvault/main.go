package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/scanvault/scanvault/internal/export"
	"github.com/scanvault/scanvault/internal/vault"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	rootFlags := ff.NewFlagSet("scanvault")
	dbPath := rootFlags.StringLong("db", "scanvault.db", "Database file path")

	rootCmd := &ff.Command{
		Name:  "scanvault",
		Usage: "scanvault [FLAGS] SUBCOMMAND ...",
		Flags: rootFlags,
	}

	listFlags := ff.NewFlagSet("list").SetParent(rootFlags)
	listTag := listFlags.StringLong("tag", "", "Only receipts carrying this tag")
	rootCmd.Subcommands = append(rootCmd.Subcommands, &ff.Command{
		Name:      "list",
		Usage:     "scanvault list [--tag NAME]",
		ShortHelp: "List stored receipts",
		Flags:     listFlags,
		Exec: func(ctx context.Context, args []string) error {
			return withService(*dbPath, func(svc *vault.Service) error {
				var receipts []vault.Receipt
				var err error
				if *listTag != "" {
					receipts, err = svc.LoadReceiptsByTag(*listTag)
				} else {
					receipts, err = svc.LoadReceipts()
				}
				if err != nil {
					return err
				}
				symbol := svc.CurrencySettings().Currency
				for _, r := range receipts {
					fmt.Printf("%s  %s%.2f  %s  %s\n", r.Date, symbol, r.Amount, r.Vendor, strings.Join(r.Tags, ";"))
				}
				return nil
			})
		},
	})

	summaryFlags := ff.NewFlagSet("summary").SetParent(rootFlags)
	recentLimit := summaryFlags.IntLong("recent", 5, "Number of recent receipts to show")
	rootCmd.Subcommands = append(rootCmd.Subcommands, &ff.Command{
		Name:      "summary",
		Usage:     "scanvault summary [--recent N]",
		ShortHelp: "Show spending totals and recent receipts",
		Flags:     summaryFlags,
		Exec: func(ctx context.Context, args []string) error {
			return withService(*dbPath, func(svc *vault.Service) error {
				receipts, err := svc.LoadReceipts()
				if err != nil {
					return err
				}
				symbol := svc.CurrencySettings().Currency
				fmt.Printf("Total: %s%.2f across %d receipts\n", symbol, vault.TotalSpending(receipts), len(receipts))
				for tag, amount := range vault.SpendingByCategory(receipts) {
					fmt.Printf("  %s: %s%.2f\n", tag, symbol, amount)
				}
				fmt.Println("Recent:")
				for _, r := range vault.RecentReceipts(receipts, *recentLimit) {
					fmt.Printf("  %s  %s%.2f  %s\n", r.Date, symbol, r.Amount, r.Vendor)
				}
				return nil
			})
		},
	})

	exportFlags := ff.NewFlagSet("export").SetParent(rootFlags)
	format := exportFlags.StringLong("format", "csv", "Export format: csv, json or xlsx")
	out := exportFlags.StringLong("out", "-", "Output file, or - for stdout")
	rootCmd.Subcommands = append(rootCmd.Subcommands, &ff.Command{
		Name:      "export",
		Usage:     "scanvault export [--format csv|json|xlsx] [--out FILE]",
		ShortHelp: "Export receipts and categories",
		Flags:     exportFlags,
		Exec: func(ctx context.Context, args []string) error {
			return withService(*dbPath, func(svc *vault.Service) error {
				snapshot, err := svc.ExportData()
				if err != nil {
					return err
				}
				var data []byte
				switch *format {
				case "csv":
					data = export.CSV(snapshot)
				case "json":
					data, err = export.JSON(snapshot)
				case "xlsx":
					data, err = export.XLSX(snapshot)
				default:
					return fmt.Errorf("unknown export format: %s", *format)
				}
				if err != nil {
					return err
				}
				if *out == "-" {
					_, err = os.Stdout.Write(data)
					return err
				}
				return os.WriteFile(*out, data, 0644)
			})
		},
	})

	rootCmd.Subcommands = append(rootCmd.Subcommands, &ff.Command{
		Name:      "autoclean",
		Usage:     "scanvault autoclean",
		ShortHelp: "Delete receipts older than the configured retention window",
		Flags:     ff.NewFlagSet("autoclean").SetParent(rootFlags),
		Exec: func(ctx context.Context, args []string) error {
			return withService(*dbPath, func(svc *vault.Service) error {
				result, err := svc.RunAutoClean()
				if err != nil {
					return err
				}
				fmt.Printf("Deleted %d receipts, released %d images\n", result.DeletedCount, result.TotalDeleted)
				return nil
			})
		},
	})

	rootCmd.Subcommands = append(rootCmd.Subcommands, &ff.Command{
		Name:      "sweep",
		Usage:     "scanvault sweep",
		ShortHelp: "Remove image blobs no receipt references",
		Flags:     ff.NewFlagSet("sweep").SetParent(rootFlags),
		Exec: func(ctx context.Context, args []string) error {
			return withService(*dbPath, func(svc *vault.Service) error {
				removed, err := svc.SweepOrphanImages()
				if err != nil {
					return err
				}
				fmt.Printf("Removed %d orphan images\n", removed)
				return nil
			})
		},
	})

	err := rootCmd.ParseAndRun(context.Background(), os.Args[1:],
		ff.WithEnvVarPrefix("SCANVAULT"),
	)
	switch {
	case err == nil:
	case errors.Is(err, ff.ErrHelp), errors.Is(err, ff.ErrNoExec):
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(rootCmd))
	default:
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// withService opens the database, wires the core, runs fn, and closes
func withService(dbPath string, fn func(*vault.Service) error) error {
	kv, err := vault.NewBoltKV(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer kv.Close()

	svc := vault.NewService(
		vault.NewRepository(kv),
		vault.NewImageStore(kv),
		vault.NewSettings(kv),
	)
	return fn(svc)
}
