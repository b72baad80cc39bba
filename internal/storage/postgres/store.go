package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mevscope/internal/model"
)

// Store provides Postgres persistence for pipeline outputs.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres. An unreachable database at startup is a
// fatal error surfaced immediately.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutForest upserts block-level classification metadata. The full forest is
// kept in the JSONL sink; the database carries the queryable summary.
func (s *Store) PutForest(ctx context.Context, forest *model.ClassifiedForest) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO classified_blocks (
			block_number, block_hash, block_ts, tx_count, builder, created_at
		) VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (block_number)
		DO UPDATE SET
			block_hash = EXCLUDED.block_hash,
			block_ts = EXCLUDED.block_ts,
			tx_count = EXCLUDED.tx_count,
			builder = EXCLUDED.builder
	`,
		int64(forest.BlockNumber),
		forest.BlockHash.Hex(),
		int64(forest.Timestamp),
		len(forest.Trees),
		forest.Builder.Hex(),
	)
	return err
}

// PutPriceMap upserts one block's resolved prices.
func (s *Store) PutPriceMap(ctx context.Context, prices *model.PriceMap) error {
	batch := &pgx.Batch{}
	for _, asset := range prices.Assets() {
		price, ok := prices.Price(asset)
		if !ok {
			continue
		}
		batch.Queue(`
			INSERT INTO block_prices (block_number, asset, quote, price, created_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (block_number, asset)
			DO UPDATE SET price = EXCLUDED.price
		`,
			int64(prices.BlockNumber),
			asset.Hex(),
			prices.Quote.Hex(),
			price.RatString(),
		)
	}
	return s.sendBatch(ctx, batch)
}

// PutBundles upserts a block's final bundles.
func (s *Store) PutBundles(ctx context.Context, bundles []model.Bundle) error {
	if len(bundles) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, bundle := range bundles {
		hashes := make([]string, len(bundle.TxHashes))
		for i, hash := range bundle.TxHashes {
			hashes[i] = hash.Hex()
		}
		victims := make([]string, len(bundle.VictimTxHashes))
		for i, hash := range bundle.VictimTxHashes {
			victims[i] = hash.Hex()
		}
		var profit *string
		if bundle.Profit != nil {
			value := bundle.Profit.RatString()
			profit = &value
		}
		batch.Queue(`
			INSERT INTO bundles (
				block_number, kind, tx_hashes, victim_tx_hashes, signer, pool, profit, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (block_number, kind, tx_hashes)
			DO UPDATE SET
				victim_tx_hashes = EXCLUDED.victim_tx_hashes,
				signer = EXCLUDED.signer,
				pool = EXCLUDED.pool,
				profit = EXCLUDED.profit
		`,
			int64(bundle.BlockNumber),
			string(bundle.Kind),
			hashes,
			victims,
			bundle.Signer.Hex(),
			bundle.Pool.Hex(),
			profit,
		)
	}
	return s.sendBatch(ctx, batch)
}

// PutFailure records an abandoned block.
func (s *Store) PutFailure(ctx context.Context, failure model.BlockFailure) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO block_failures (block_number, stage, reason, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (block_number)
		DO UPDATE SET stage = EXCLUDED.stage, reason = EXCLUDED.reason
	`,
		int64(failure.BlockNumber),
		failure.Stage,
		failure.Reason,
	)
	return err
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
