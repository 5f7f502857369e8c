// Package archive exports the order log to gzipped JSON-lines files and
// restores it from them. Files live in a local directory, in S3, or in S3
// with a local fallback.
package archive

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

// ErrInvalidName is returned for archive names that are empty or contain a path.
var ErrInvalidName = errors.New("invalid archive name")

// Store reads and writes archive files by name.
type Store interface {
	// Save writes data under name, replacing any existing archive.
	Save(ctx context.Context, name string, data []byte) error

	// Open returns a reader for the archive called name.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// ExportResult describes a written archive.
type ExportResult struct {
	Name   string `json:"name"`
	Orders int    `json:"orders"`
}

// RestoreResult counts what happened to each archived order.
type RestoreResult struct {
	Name     string `json:"name"`
	Restored int    `json:"restored"`
	Skipped  int    `json:"skipped"`
	Invalid  int    `json:"invalid"`
}

// Archiver moves orders between the order log and archive files.
type Archiver struct {
	log     repository.OrderLog
	store   Store
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewArchiver creates an archiver over log and store.
func NewArchiver(log repository.OrderLog, store Store, m *metrics.Metrics, logger zerolog.Logger) *Archiver {
	return &Archiver{
		log:     log,
		store:   store,
		metrics: m,
		logger:  logger.With().Str("component", "order-archive").Logger(),
		now:     time.Now,
	}
}

// Export writes every order in the log to a new timestamped archive.
func (a *Archiver) Export(ctx context.Context) (*ExportResult, error) {
	orders, err := a.log.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read order log: %w", err)
	}

	var buf bytes.Buffer
	if err := writeOrders(&buf, orders); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("orders-%s.jsonl.gz", a.now().UTC().Format("20060102T150405Z"))
	if err := a.store.Save(ctx, name, buf.Bytes()); err != nil {
		a.logger.Error().Err(err).Str("archive", name).Msg("failed to save order archive")
		return nil, fmt.Errorf("failed to save archive %s: %w", name, err)
	}

	a.metrics.Archived(len(orders))
	a.logger.Info().
		Str("archive", name).
		Int("orders", len(orders)).
		Int("bytes", buf.Len()).
		Msg("order log exported")

	return &ExportResult{Name: name, Orders: len(orders)}, nil
}

// Restore appends the orders of an archive to the log. Orders whose ID is
// already logged are skipped, as are records that fail validation.
func (a *Archiver) Restore(ctx context.Context, name string) (*RestoreResult, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	rc, err := a.store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", name, err)
	}
	defer rc.Close()

	result := &RestoreResult{Name: name}
	err = readOrders(ctx, rc, func(o model.Order) error {
		if err := o.Validate(); err != nil {
			a.logger.Warn().Err(err).Str("order_id", o.ID).Msg("skipping invalid archived order")
			result.Invalid++
			return nil
		}

		switch err := a.log.Append(ctx, &o); {
		case err == nil:
			result.Restored++
		case errors.Is(err, repository.ErrDuplicateOrder):
			result.Skipped++
		default:
			return fmt.Errorf("failed to restore order %s: %w", o.ID, err)
		}
		return nil
	})
	if err != nil {
		a.logger.Error().Err(err).Str("archive", name).Msg("order restore aborted")
		return nil, err
	}

	a.logger.Info().
		Str("archive", name).
		Int("restored", result.Restored).
		Int("skipped", result.Skipped).
		Int("invalid", result.Invalid).
		Msg("order archive restored")

	return result, nil
}

// ValidateName rejects names that could escape the archive location.
func ValidateName(name string) error {
	if name == "" || name != path.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// writeOrders encodes orders as gzipped JSON, one order per line.
func writeOrders(w io.Writer, orders []model.Order) error {
	gz := gzip.NewWriter(w)
	enc := json.NewEncoder(gz)
	for i := range orders {
		if err := enc.Encode(&orders[i]); err != nil {
			gz.Close()
			return fmt.Errorf("failed to encode order %s: %w", orders[i].ID, err)
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

// readOrders decodes a gzipped JSON-lines stream, calling fn for each order.
func readOrders(ctx context.Context, r io.Reader, fn func(model.Order) error) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var o model.Order
		if err := json.Unmarshal(text, &o); err != nil {
			return fmt.Errorf("failed to decode archive line %d: %w", line, err)
		}
		if err := fn(o); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading archive: %w", err)
	}
	return nil
}
