// pricectl — операторская утилита: миграции, разовый приём батча из файла, счётчики каталога.
//
//	pricectl migrate up|down|status
//	pricectl ingest -store URL -file items.json [-category slug] [-mark-missing]
//	pricectl stats
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/voyager-tech/go-backend/db"
	"github.com/voyager-tech/go-backend/internal/app"
	config "github.com/voyager-tech/go-backend/internal/cfg"
	"github.com/voyager-tech/go-backend/internal/ledger"
	"github.com/voyager-tech/go-backend/internal/usecase"
	"github.com/voyager-tech/go-backend/pkg/clients"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/logger"
	"github.com/voyager-tech/go-backend/pkg/postgres"
)

const usage = `usage:
  pricectl migrate up|down|status
  pricectl ingest -store URL -file items.json [-category slug] [-mark-missing]
  pricectl stats`

// fileItem — позиция файла для ingest: JSON-массив таких объектов.
type fileItem struct {
	Name     string           `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	URL      string           `json:"url"`
	Currency string           `json:"currency"`
	Image    *string          `json:"image"`
	Category string           `json:"category"`
	InStock  *bool            `json:"in_stock"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	log := logger.NewSlogLogger()
	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		log.Errorf(err, "failed to connect to database")
		os.Exit(1)
	}
	defer pg.Close()

	switch os.Args[1] {
	case "migrate":
		err = runMigrate(ctx, pg, log, os.Args[2:])
	case "ingest":
		err = runIngest(ctx, pg, cfg, log, os.Args[2:])
	case "stats":
		err = runStats(ctx, pg, cfg, log)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Errorf(err, "pricectl %s failed", os.Args[1])
		stop()
		pg.Close()
		os.Exit(1)
	}
}

func runMigrate(ctx context.Context, pg *postgres.PgDatabase, log logger.Logger, args []string) error {
	if len(args) != 1 {
		return errors.New("migrate expects exactly one of: up, down, status")
	}

	l, err := ledger.New(pg.Pool, db.Migrations, db.MigrationsDir, log)
	if err != nil {
		return err
	}

	switch args[0] {
	case "up":
		applied, err := l.Up(ctx)
		for _, m := range applied {
			fmt.Printf("applied   %06d_%s\n", m.Version, m.Description)
		}
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Println("nothing to apply")
		}
		return nil
	case "down":
		m, err := l.Down(ctx)
		if errors.Is(err, e.ErrNoAppliedMigrations) {
			fmt.Println("nothing to roll back")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("rolled back %06d_%s\n", m.Version, m.Description)
		return nil
	case "status":
		states, err := l.Status(ctx)
		if err != nil {
			return err
		}
		return printStatus(os.Stdout, states)
	default:
		return fmt.Errorf("unknown migrate command %q", args[0])
	}
}

func printStatus(w io.Writer, states []ledger.State) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tDESCRIPTION\tSTATUS\tAPPLIED AT")
	for _, s := range states {
		status, at := "pending", "-"
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				at = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(tw, "%06d\t%s\t%s\t%s\n", s.Version, s.Description, status, at)
	}

	return tw.Flush()
}

func runIngest(ctx context.Context, pg *postgres.PgDatabase, cfg *config.Config, log logger.Logger, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	store := fs.String("store", "", "base URL of the store")
	file := fs.String("file", "", "JSON file with an array of items")
	category := fs.String("category", "", "default category slug for the batch")
	markMissing := fs.Bool("mark-missing", false, "soft-delete store products absent from the batch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *store == "" || *file == "" {
		return errors.New("-store and -file are required")
	}

	items, err := readItems(*file)
	if err != nil {
		return err
	}

	var redisClient *clients.RedisClient
	if cfg.Redis.Enabled {
		redisClient = clients.NewRedisClient(cfg.Redis)
		defer redisClient.Close()
	}

	services := app.NewServices(pg, redisClient, cfg, log)
	res, err := services.Ingest.Ingest(ctx, &usecase.IngestReq{
		StoreURL: *store,
		Items:    items,
		Options:  usecase.IngestOptions{DefaultCategory: *category, MarkMissing: *markMissing},
	})
	if err != nil {
		return err
	}

	fmt.Printf("store %d: %d products touched (%d new), %d prices appended, %d marked missing\n",
		res.StoreID, res.ProductsTouched, res.ProductsCreated, res.PricesAppended, res.MarkedMissing)
	return nil
}

func readItems(path string) ([]usecase.IngestItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var raw []fileItem
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	items := make([]usecase.IngestItem, 0, len(raw))
	for i, it := range raw {
		if it.Price == nil {
			return nil, e.NewValidationError(i, "price", "is required")
		}
		items = append(items, usecase.IngestItem{
			Name:     it.Name,
			Price:    *it.Price,
			URL:      it.URL,
			Currency: it.Currency,
			Image:    it.Image,
			Category: it.Category,
			InStock:  it.InStock,
		})
	}

	return items, nil
}

func runStats(ctx context.Context, pg *postgres.PgDatabase, cfg *config.Config, log logger.Logger) error {
	stats, err := app.NewServices(pg, nil, cfg, log).Catalog.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("stores: %d\nproducts: %d\nprices: %d\n", stats.Stores, stats.Products, stats.Prices)
	return nil
}
