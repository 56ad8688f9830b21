package core

// importer.go orchestrates one import batch: detection → normalization →
// reference resolution → write, inside a single transaction.
//
// Transaction discipline is deliberately asymmetric. Record-level failures
// (bad normalization, reference creation, rejected writes) roll back only
// their own savepoint and processing continues, so earlier successes in the
// batch commit even when later records fail. Infrastructure failures
// (broken connection, failed savepoint, failed commit) roll back the whole
// batch with zero records committed. That asymmetry is user-visible
// re-import behavior and must not be "fixed".

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ImportBatch processes an inbound payload against the live store. The
// returned error is batch-level only (parse or infrastructure); per-record
// failures are reported inside the result.
//
// Records are processed strictly in input order: later records may depend
// on reference-cache entries created by earlier ones.
func (s *Service) ImportBatch(ctx context.Context, payload []byte, opts ImportOptions) (*ImportResult, error) {
	start := time.Now()

	sets, err := parsePayload(payload, opts)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		BatchID:      uuid.NewString(),
		SourceSystem: opts.SourceSystem,
		Errors:       []string{},
		Warnings:     []Warning{},
	}

	log := slog.Default().With("batch_id", result.BatchID, "user_id", opts.UserID)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// One introspection per table per batch; never cached beyond it.
	shapes, err := s.introspectShapes(ctx, sets)
	if err != nil {
		return nil, err
	}

	rz := newResolver(tx, opts.UserID, shapes)

	spNum := 0
	for _, set := range sets {
		def, ok := Definition(set.Kind)
		if !ok {
			return nil, fmt.Errorf("no definition for entity kind %q", set.Kind)
		}

		for i, raw := range set.Records {
			rowNum := set.FirstRow + i
			spNum++
			sp := fmt.Sprintf("sp_%d", spNum)

			if _, err := tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
				return nil, fmt.Errorf("create savepoint: %w", err)
			}
			cacheMark := rz.cache.mark()

			outcome := s.processRecord(ctx, def, raw, rz, opts, rowNum, result)
			outcome.Row = rowNum
			outcome.Kind = set.Kind

			switch outcome.Status {
			case OutcomeFailed:
				// The savepoint rollback removes any placeholder this
				// record created, so its cache entries go with it.
				if _, err := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp); err != nil {
					return nil, fmt.Errorf("rollback savepoint: %w", err)
				}
				rz.cache.discardTo(cacheMark)
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: %s", rowNum, outcome.Reason))
			case OutcomeSkipped:
				if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
					return nil, fmt.Errorf("release savepoint: %w", err)
				}
				result.Skipped++
			default:
				if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
					return nil, fmt.Errorf("release savepoint: %w", err)
				}
				result.Processed++
			}

			result.Outcomes = append(result.Outcomes, outcome)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	result.Duration = time.Since(start)
	log.Info("import batch finished",
		"processed", result.Processed,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", result.Duration,
	)
	return result, nil
}

// processRecord runs the per-record pipeline. Every failure path returns a
// Failed outcome; nothing here may abort the batch.
func (s *Service) processRecord(ctx context.Context, def EntityDefinition, raw RawRecord, rz *Resolver, opts ImportOptions, rowNum int, result *ImportResult) ImportOutcome {
	rec, warns, err := s.Normalize(def, raw)
	if err != nil {
		return ImportOutcome{Status: OutcomeFailed, Reason: err.Error()}
	}
	for _, w := range warns {
		w.Row = rowNum
		result.Warnings = append(result.Warnings, w)
	}

	if opts.SourceSystem != "" {
		AdaptLegacy(def, rec)
	}

	// Best-effort dedup for kinds without a strict natural key. Contacts
	// match by email when one is present and may still duplicate without
	// one; that looseness is the documented current behavior.
	if def.Dedup != nil {
		exists, err := def.Dedup(ctx, rec, rz)
		if err != nil {
			return ImportOutcome{Status: OutcomeFailed, Reason: friendlyStoreError(err)}
		}
		if exists {
			return ImportOutcome{Status: OutcomeSkipped, Reason: "already exists"}
		}
	}

	// Natural-key dedup for kinds that have one.
	if def.NaturalKey != "" {
		if key := rec.Str(def.NaturalKey); key != "" {
			exists, err := s.naturalKeyExists(ctx, rz, def, key)
			if err != nil {
				return ImportOutcome{Status: OutcomeFailed, Reason: friendlyStoreError(err)}
			}
			if exists {
				return ImportOutcome{Status: OutcomeSkipped, Reason: "already exists"}
			}
		}
	}

	row, err := def.Prepare(ctx, rec, rz)
	if err != nil {
		return ImportOutcome{Status: OutcomeFailed, Reason: err.Error()}
	}

	id, err := insertReturningID(ctx, rz.q, def.Table, row, rz.shape(def.Table))
	if err != nil {
		return ImportOutcome{Status: OutcomeFailed, Reason: friendlyStoreError(err)}
	}

	// Later rows referencing this entity should hit the cache, not
	// re-query.
	if def.NaturalKey != "" {
		if key := rec.Str(def.NaturalKey); key != "" {
			rz.cache.put(def.Kind, key, id)
		}
	}
	if def.Kind == KindContacts {
		if email := rec.Str("email"); email != "" {
			rz.cache.put(KindContacts, email, id)
		}
	}

	return ImportOutcome{Status: OutcomeImported, ID: id}
}

// naturalKeyExists checks for an existing record with the same natural key,
// consulting the batch cache first so a record created earlier in this
// batch is also seen.
func (s *Service) naturalKeyExists(ctx context.Context, rz *Resolver, def EntityDefinition, key string) (bool, error) {
	if _, ok := rz.cache.get(def.Kind, key); ok {
		return true, nil
	}

	sql := fmt.Sprintf("SELECT id FROM %s WHERE user_id = $1 AND %s = $2 LIMIT 1", def.Table, def.NaturalKey)
	rows, err := rz.q.Query(ctx, sql, rz.userID, key)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// introspectShapes fetches the column shape of every table this batch can
// touch: each target table plus the reference targets.
func (s *Service) introspectShapes(ctx context.Context, sets []recordSet) (map[string]SchemaShape, error) {
	tables := map[string]bool{"contacts": true, "orders": true}
	for _, set := range sets {
		if def, ok := Definition(set.Kind); ok {
			tables[def.Table] = true
		}
	}

	shapes := make(map[string]SchemaShape, len(tables))
	for table := range tables {
		shape, err := s.store.IntrospectColumns(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("introspect %s: %w", table, err)
		}
		shapes[table] = shape
	}
	return shapes, nil
}
