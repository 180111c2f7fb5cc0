package services

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"nexus-analytics/internal/models"
)

const (
	batchSize    = 10000
	maxWorkers   = 10
	cacheVersion = "v1"
	cacheDir     = ".cache"
)

// Dataset owns the raw sales table. It is write-once per load: every
// consumer gets an immutable snapshot, and a version counter lets the
// feature layer know when cached encoders must be rebuilt.
type Dataset struct {
	mu      sync.RWMutex
	records []models.Record
	version int64
	csvPath string
	logger  *slog.Logger
}

func NewDataset(logger *slog.Logger) *Dataset {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dataset{logger: logger}
}

// SetRecords replaces the table wholesale. Used by tests and by the
// synthetic fallback path.
func (d *Dataset) SetRecords(records []models.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = records
	d.version++
}

// Records returns the current table snapshot.
func (d *Dataset) Records() []models.Record {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.records
}

// Version changes whenever the table is replaced.
func (d *Dataset) Version() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Snapshot returns the table together with its version under a single
// lock, so callers keying caches by version never pair a stale table
// with a newer version.
func (d *Dataset) Snapshot() ([]models.Record, int64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.records, d.version
}

// Filter returns the records matching the given region and category
// sets. Empty sets mean "all". The result is a fresh slice; the
// underlying table is never mutated.
func (d *Dataset) Filter(regions, categories []string) []models.Record {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(regions) == 0 && len(categories) == 0 {
		return d.records
	}

	out := make([]models.Record, 0, len(d.records))
	for _, r := range d.records {
		if len(regions) > 0 && !slices.Contains(regions, r.Region) {
			continue
		}
		if len(categories) > 0 && !slices.Contains(categories, r.Category) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// LoadFromCSV streams the sales table from disk. When the file does
// not exist a synthetic table is generated instead, so the rest of the
// system behaves identically regardless of data provenance.
func (d *Dataset) LoadFromCSV(ctx context.Context, filename string, syntheticSeed int64) error {
	d.csvPath = filename

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		d.logger.Warn("sales CSV not found, generating synthetic table", "filename", filename)
		d.SetRecords(GenerateSyntheticRecords(syntheticSeed))
		return nil
	}

	if cached, err := d.loadFromCache(filename); err == nil {
		fileInfo, err := os.Stat(filename)
		if err == nil && fileInfo.ModTime().Before(cached.LoadedAt) {
			d.SetRecords(cached.Records)
			d.logger.Info("loaded from cache", "records", len(cached.Records))
			return nil
		}
	}

	start := time.Now()
	d.logger.Info("processing CSV file", "filename", filename)

	records, err := d.streamProcessCSV(ctx, filename)
	if err != nil {
		return fmt.Errorf("process csv: %w", err)
	}
	d.SetRecords(records)

	if err := d.saveToCache(filename, records); err != nil {
		d.logger.Warn("failed to save cache", "error", err)
	}

	duration := time.Since(start)
	d.logger.Info("csv processing complete",
		"records", len(records),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(len(records))/duration.Seconds()))

	return nil
}

// Expected header order:
// Sale_Date,Region,Product_Category,Sales_Rep,Customer_Type,Payment_Method,Sales_Channel,Quantity_Sold,Unit_Price,Unit_Cost,Discount
const csvColumnCount = 11

func (d *Dataset) streamProcessCSV(ctx context.Context, filename string) ([]models.Record, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024) // 10MB buffer

	// Skip header
	if !scanner.Scan() {
		return nil, fmt.Errorf("empty file")
	}

	var (
		mu      sync.Mutex
		records []models.Record
	)

	batch := make([]string, 0, batchSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		batch = append(batch, scanner.Text())

		if len(batch) >= batchSize {
			if err := d.processBatch(ctx, batch, &mu, &records); err != nil {
				return nil, err
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := d.processBatch(ctx, batch, &mu, &records); err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan error: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no valid records found")
	}

	return records, nil
}

func (d *Dataset) processBatch(ctx context.Context, batch []string, mu *sync.Mutex, records *[]models.Record) error {
	var wg errgroup.Group
	wg.SetLimit(maxWorkers)

	recChan := make(chan models.Record, len(batch))

	for _, line := range batch {
		wg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			fields := strings.Split(line, ",")
			rec, err := parseRecordFast(fields)
			if err != nil {
				return nil // Skip invalid records
			}

			recChan <- rec
			return nil
		})
	}

	if err := wg.Wait(); err != nil {
		close(recChan)
		return err
	}
	close(recChan)

	local := make([]models.Record, 0, len(batch))
	for rec := range recChan {
		local = append(local, rec)
	}

	mu.Lock()
	*records = append(*records, local...)
	mu.Unlock()

	return nil
}

func parseRecordFast(fields []string) (models.Record, error) {
	if len(fields) < csvColumnCount {
		return models.Record{}, fmt.Errorf("insufficient columns")
	}

	saleDate, err := time.Parse("2006-01-02", strings.TrimSpace(fields[0]))
	if err != nil {
		return models.Record{}, err
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(fields[7]))
	if err != nil {
		return models.Record{}, err
	}

	unitPrice, err := strconv.ParseFloat(strings.TrimSpace(fields[8]), 64)
	if err != nil {
		return models.Record{}, err
	}

	unitCost, err := strconv.ParseFloat(strings.TrimSpace(fields[9]), 64)
	if err != nil {
		return models.Record{}, err
	}

	discount, err := strconv.ParseFloat(strings.TrimSpace(fields[10]), 64)
	if err != nil {
		return models.Record{}, err
	}
	if discount < 0 || discount > 1 {
		return models.Record{}, fmt.Errorf("discount %v outside [0,1]", discount)
	}

	return models.Record{
		SaleDate:      saleDate,
		Region:        strings.TrimSpace(fields[1]),
		Category:      strings.TrimSpace(fields[2]),
		SalesRep:      strings.TrimSpace(fields[3]),
		CustomerType:  strings.TrimSpace(fields[4]),
		PaymentMethod: strings.TrimSpace(fields[5]),
		Channel:       strings.TrimSpace(fields[6]),
		Quantity:      quantity,
		UnitPrice:     unitPrice,
		UnitCost:      unitCost,
		Discount:      discount,
	}, nil
}

// GenerateSyntheticRecords builds a year of plausible demo data. The
// seed makes demo runs reproducible.
func GenerateSyntheticRecords(seed int64) []models.Record {
	rng := rand.New(rand.NewSource(seed))

	regions := []string{"North America", "Europe", "Asia Pacific", "Latin America"}
	categories := []string{"Electronics", "Furniture", "Office Supplies", "Software"}
	customerTypes := []string{"New", "Returning", "Enterprise"}
	paymentMethods := []string{"Credit Card", "Bank Transfer", "PayPal", "Cash"}
	channels := []string{"Online", "Retail", "Partner"}
	discounts := []float64{0, 0.05, 0.1, 0.2}
	discountWeights := []float64{0.6, 0.2, 0.15, 0.05}

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	var records []models.Record
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		transactions := 5 + rng.Intn(10)
		for range transactions {
			price := 50 + rng.Float64()*1950
			records = append(records, models.Record{
				SaleDate:      day,
				Region:        regions[rng.Intn(len(regions))],
				Category:      categories[rng.Intn(len(categories))],
				SalesRep:      fmt.Sprintf("Rep_%d", 1+rng.Intn(19)),
				CustomerType:  customerTypes[rng.Intn(len(customerTypes))],
				PaymentMethod: paymentMethods[rng.Intn(len(paymentMethods))],
				Channel:       channels[rng.Intn(len(channels))],
				Quantity:      1 + rng.Intn(9),
				UnitPrice:     price,
				UnitCost:      price * (0.6 + rng.Float64()*0.3),
				Discount:      weightedChoice(rng, discounts, discountWeights),
			})
		}
	}
	return records
}

func weightedChoice(rng *rand.Rand, values, weights []float64) float64 {
	r := rng.Float64()
	var cum float64
	for i, w := range weights {
		cum += w
		if r < cum {
			return values[i]
		}
	}
	return values[len(values)-1]
}

// Cache management

type cachedTable struct {
	Records  []models.Record
	LoadedAt time.Time
}

func (d *Dataset) getCacheFilename(csvPath string) string {
	return fmt.Sprintf("%s/%s_%s.gob", cacheDir, strings.ReplaceAll(csvPath, "/", "_"), cacheVersion)
}

func (d *Dataset) saveToCache(csvPath string, records []models.Record) error {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return err
	}

	filename := d.getCacheFilename(csvPath)
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := gob.NewEncoder(file)
	return encoder.Encode(cachedTable{Records: records, LoadedAt: time.Now()})
}

func (d *Dataset) loadFromCache(csvPath string) (*cachedTable, error) {
	filename := d.getCacheFilename(csvPath)
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cached cachedTable
	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&cached); err != nil {
		return nil, err
	}

	return &cached, nil
}
