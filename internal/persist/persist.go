// Package persist provides the resilient write path between in-memory
// record sets and the remote store. Every record set is serialized to a
// local CSV artifact BEFORE any remote write is attempted; remote failures
// can therefore degrade the run, but never lose data.
package persist

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lib/pq"
	"github.com/showdex/showdex/pkg/logger"
)

var log = logger.Get("Persist")

type Outcome int

const (
	// FullSuccess means every batch reached the remote store.
	FullSuccess Outcome = iota

	// PartialSuccess means the remote store rejected or dropped at least
	// one batch, but the complete record set is safe in the backup
	// artifact referenced by the result.
	PartialSuccess

	// Failure means the remote store accepted nothing and no rejection was
	// attributable to access policy; the store is presumed unreachable.
	// The backup artifact still holds the complete record set.
	Failure
)

func (o Outcome) String() string {
	switch o {
	case FullSuccess:
		return "FULL_SUCCESS"
	case PartialSuccess:
		return "PARTIAL_SUCCESS"
	case Failure:
		return "FAILURE"
	default:
		return fmt.Sprintf("UNKNOWN[%d]", o)
	}
}

type (
	// Upserter writes one bounded batch of records to the remote store.
	Upserter[T any] func(batch []T) error

	// BatchOutcome records the fate of a single batch so that the run
	// report can account for every record rather than relying on silently
	// swallowed errors.
	BatchOutcome struct {
		Index    int
		Size     int
		Degraded bool
		Err      error
	}

	// Result is the outcome of persisting one logical dataset.
	Result struct {
		Outcome    Outcome
		BackupPath string
		Total      int
		Persisted  int
		Batches    []BatchOutcome
	}

	// Batched persists a record set for one logical dataset in bounded
	// batches, with a mandatory CSV backup written up front.
	Batched[T any] struct {
		// Dataset names the logical record set; it becomes the backup
		// file stem ("<BackupDir>/<Dataset>.csv").
		Dataset string

		BackupDir string
		BatchSize int

		// Header and Row define the CSV backup projection of a record.
		Header []string
		Row    func(T) []string
	}
)

// Save serializes all records to the backup artifact and then upserts them
// in batches. A batch refused by the stores access-control layer is logged
// with remediation guidance and skipped; any other batch failure is logged
// and skipped. A backup write failure is fatal: without the artifact there
// is no durability guarantee to degrade to.
func (b *Batched[T]) Save(records []T, upsert Upserter[T]) (*Result, error) {
	backupPath := filepath.Join(b.BackupDir, b.Dataset+".csv")

	rows := make([][]string, len(records))
	for k, v := range records {
		rows[k] = b.Row(v)
	}
	if err := writeCsv(backupPath, b.Header, rows); err != nil {
		return nil, fmt.Errorf("failed to write backup artifact for dataset %s: %w", b.Dataset, err)
	}
	log.Emit(logger.INFO, "Saved %d %s records to backup artifact %s\n", len(records), b.Dataset, backupPath)

	result := &Result{
		Outcome:    FullSuccess,
		BackupPath: backupPath,
		Total:      len(records),
	}
	if len(records) == 0 {
		return result, nil
	}

	// A non-positive batch size would stall the partition loop; treat it
	// as "no partitioning" and push the whole set in one batch.
	batchSize := b.BatchSize
	if batchSize <= 0 {
		batchSize = len(records)
	}

	degraded := false
	for index, start := 0, 0; start < len(records); index, start = index+1, start+batchSize {
		end := min(start+batchSize, len(records))
		batch := records[start:end]

		outcome := BatchOutcome{Index: index, Size: len(batch)}
		if err := upsert(batch); err != nil {
			outcome.Err = err
			if IsPolicyRejection(err) {
				outcome.Degraded = true
				degraded = true
				log.Emit(logger.WARNING, "Store rejected %s batch %d (%d records) on access policy: %s\n", b.Dataset, index, len(batch), err.Error())
				emitPolicyGuidance(b.Dataset)
			} else {
				log.Emit(logger.WARNING, "Failed to upsert %s batch %d (%d records): %s\n", b.Dataset, index, len(batch), err.Error())
			}
		} else {
			result.Persisted += len(batch)
		}

		result.Batches = append(result.Batches, outcome)
	}

	switch {
	case result.Persisted == result.Total:
		result.Outcome = FullSuccess
	case result.Persisted == 0 && !degraded:
		result.Outcome = Failure
		log.Emit(logger.ERROR, "Store accepted no %s batches and no policy rejection was seen; remote presumed unreachable. Records remain in %s\n", b.Dataset, backupPath)
	default:
		result.Outcome = PartialSuccess
		log.Emit(logger.STOP, "Dataset %s degraded: %d/%d records reached the store, all %d preserved in %s\n", b.Dataset, result.Persisted, result.Total, result.Total, backupPath)
	}

	return result, nil
}

// IsPolicyRejection reports whether the given write error represents the
// stores access-control layer refusing the rows, as opposed to a transport
// or validation failure. The structured SQLSTATE (42501, insufficient
// privilege - what Postgres raises for both missing grants and row-level
// security violations) is authoritative; the substring match is kept for
// errors which arrive already stringified.
func IsPolicyRejection(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42501"
	}

	if err == nil {
		return false
	}

	message := strings.ToLower(err.Error())
	return strings.Contains(message, "row-level security") || strings.Contains(message, "permission denied")
}

// emitPolicyGuidance names the exact operator actions that resolve a policy
// rejection, so recovery does not require reading source code.
func emitPolicyGuidance(dataset string) {
	log.Emit(logger.INFO, "To fix the %s policy rejection, either:\n", dataset)
	log.Emit(logger.INFO, "  1. Set DB_USERNAME/DB_PASSWORD to a role with INSERT and UPDATE on the %s table, or\n", dataset)
	log.Emit(logger.INFO, "  2. Grant the current role access: GRANT INSERT, UPDATE ON %s TO <role>;, or\n", dataset)
	log.Emit(logger.INFO, "  3. Disable row-level security: ALTER TABLE %s DISABLE ROW LEVEL SECURITY;\n", dataset)
	log.Emit(logger.INFO, "The backup CSV can be imported manually once permissions are corrected\n")
}
