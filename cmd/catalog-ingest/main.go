// Command catalog-ingest bulk-loads products from gzip-compressed JSON-lines
// feed files into the catalog. Supplier feeds routinely repeat products
// across files, so a bloom filter tracks already-ingested names and skips
// probable duplicates without holding every name in memory.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/shopworks/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	batchSize     = 500
	progressEvery = 100_000
)

// feedProduct is one line of a supplier feed file.
type feedProduct struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Images      []string
}

func main() {
	var (
		dataDir     string
		databaseURL string
		adminID     string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&adminID, "created-by", "", "user ID recorded as the products' creator")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminID == "" {
		slog.Error("--created-by is required: pass the importing admin's user ID")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, adminID); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL, adminID string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	ing := &ingester{
		pool:    pool,
		adminID: adminID,
		seen:    bloom.NewWithEstimates(bloomCapacity, bloomFPR),
	}

	slog.Info("ingesting feed files", slog.Int("files", len(files)))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(ing.ingestFile(ctx, i, f))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Uint64("inserted", ing.inserted),
		slog.Uint64("skipped_duplicates", ing.skipped),
		slog.Uint64("skipped_invalid", ing.invalid),
	)
	return nil
}

// ingester serializes duplicate checks and batch writes; file parsing and
// decompression still run concurrently per file.
type ingester struct {
	pool interface {
		SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	}
	adminID string

	mu       sync.Mutex
	seen     *bloom.BloomFilter
	pending  []feedProduct
	inserted uint64
	skipped  uint64
	invalid  uint64
}

func (ing *ingester) ingestFile(ctx context.Context, idx int, path string) func() error {
	return func() error {
		var count uint64

		if err := streamGzFile(ctx, path, func(line []byte) error {
			count++
			if count%progressEvery == 0 {
				slog.Info("ingest progress",
					slog.Int("file", idx+1),
					slog.Uint64("lines", count),
				)
			}

			p, err := decodeFeedLine(line)
			if err != nil {
				slog.Warn("skipping malformed line",
					slog.Int("file", idx+1),
					slog.Uint64("line", count),
					slog.String("error", err.Error()),
				)
				ing.mu.Lock()
				ing.invalid++
				ing.mu.Unlock()
				return nil
			}
			return ing.add(ctx, p)
		}); err != nil {
			return errors.Wrapf(err, "ingest file %d", idx+1)
		}

		if err := ing.flush(ctx); err != nil {
			return errors.Wrapf(err, "flush after file %d", idx+1)
		}

		slog.Info("file complete", slog.Int("file", idx+1), slog.Uint64("lines", count))
		return nil
	}
}

// add queues p for insertion unless its name was already seen, flushing the
// pending batch when it fills up.
func (ing *ingester) add(ctx context.Context, p feedProduct) error {
	ing.mu.Lock()
	if ing.seen.TestString(p.Name) {
		ing.skipped++
		ing.mu.Unlock()
		return nil
	}
	ing.seen.AddString(p.Name)
	ing.pending = append(ing.pending, p)
	full := len(ing.pending) >= batchSize
	ing.mu.Unlock()

	if full {
		return ing.flush(ctx)
	}
	return nil
}

const insertProductSQL = `
	INSERT INTO products (id, name, description, price, stock, category, images, created_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (ing *ingester) flush(ctx context.Context) error {
	ing.mu.Lock()
	batch := ing.pending
	ing.pending = nil
	ing.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, p := range batch {
		images := p.Images
		if images == nil {
			images = []string{}
		}
		b.Queue(insertProductSQL,
			uuid.NewString(), p.Name, p.Description, p.Price, p.Stock, p.Category, images, ing.adminID,
		)
	}

	res := ing.pool.SendBatch(ctx, b)
	defer func() { _ = res.Close() }()
	for range batch {
		if _, err := res.Exec(); err != nil {
			return errors.Wrap(err, "insert product batch")
		}
	}

	ing.mu.Lock()
	ing.inserted += uint64(len(batch))
	ing.mu.Unlock()
	return nil
}

// decodeFeedLine parses a single JSON feed line. Unknown fields are ignored
// so feeds may carry supplier-specific extras.
func decodeFeedLine(line []byte) (feedProduct, error) {
	var p feedProduct
	d := jx.DecodeBytes(line)

	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "name":
			v, err := d.Str()
			p.Name = v
			return err
		case "description":
			v, err := d.Str()
			p.Description = v
			return err
		case "price":
			raw, err := d.NumAppend(nil)
			if err != nil {
				return err
			}
			p.Price, err = decimal.NewFromString(string(raw))
			return err
		case "stock":
			v, err := d.Int()
			p.Stock = v
			return err
		case "category":
			v, err := d.Str()
			p.Category = v
			return err
		case "images":
			return d.Arr(func(d *jx.Decoder) error {
				v, err := d.Str()
				if err != nil {
					return err
				}
				p.Images = append(p.Images, v)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return feedProduct{}, err
	}

	switch {
	case p.Name == "":
		return feedProduct{}, errors.New("missing name")
	case p.Category == "":
		return feedProduct{}, errors.New("missing category")
	case p.Price.IsNegative():
		return feedProduct{}, errors.New("negative price")
	case p.Stock < 0:
		return feedProduct{}, errors.New("negative stock")
	}
	return p, nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
