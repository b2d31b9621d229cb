package projector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// ensureUser returns the stats record for addr, creating a zeroed one on
// first sight.
func (p *Projector) ensureUser(ctx context.Context, tx domain.EntityTx, addr string) (domain.User, error) {
	user, err := tx.Users().Get(ctx, addr)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, fmt.Errorf("load user %s: %w", addr, err)
	}
	user = domain.User{ID: addr}
	if err := tx.Users().Create(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("create user %s: %w", addr, err)
	}
	return user, nil
}

// ensureErc20 lazily creates the currency record for addr, reading its
// metadata from the settlement layer exactly once. A failed read aborts the
// creation; the reference itself is malformed and retrying cannot fix it.
func (p *Projector) ensureErc20(ctx context.Context, tx domain.EntityTx, addr string) error {
	_, err := tx.Erc20s().Get(ctx, addr)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("load erc20 %s: %w", addr, err)
	}

	token, err := p.meta.Erc20Metadata(ctx, addr)
	if err != nil {
		return fmt.Errorf("erc20 %s: %w: %w", addr, domain.ErrMetadataFetch, err)
	}
	token.ID = addr
	if err := tx.Erc20s().Create(ctx, token); err != nil {
		return fmt.Errorf("create erc20 %s: %w", addr, err)
	}
	p.logger.InfoContext(ctx, "registered erc20",
		slog.String("address", addr),
		slog.String("symbol", token.Symbol),
	)
	return nil
}

// upsertLoanConfig writes the terms for one (desk, collection) pair, lazily
// creating the collection record and maintaining its active-config count and
// the protocol collection counter.
func (p *Projector) upsertLoanConfig(ctx context.Context, tx domain.EntityTx, proto *domain.ProtocolInfo, deskID uint64, terms domain.LoanConfigTerms) error {
	col, err := tx.Collections().Get(ctx, terms.NftCollection)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		col = domain.NftCollection{ID: terms.NftCollection, IsErc1155: terms.IsErc1155}
		if err := tx.Collections().Create(ctx, col); err != nil {
			return fmt.Errorf("create collection %s: %w", terms.NftCollection, err)
		}
	case err != nil:
		return fmt.Errorf("load collection %s: %w", terms.NftCollection, err)
	}

	existing, err := tx.LoanConfigs().Get(ctx, deskID, terms.NftCollection)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("load loan config %d-%s: %w", deskID, terms.NftCollection, err)
	}
	wasActive := err == nil && existing.Active

	cfg := domain.LoanConfig{
		LendingDeskID: deskID,
		NftCollection: terms.NftCollection,
		Active:        true,
		MinAmount:     bigOrZero(terms.MinAmount),
		MaxAmount:     bigOrZero(terms.MaxAmount),
		MinDuration:   terms.MinDuration,
		MaxDuration:   terms.MaxDuration,
		MinInterest:   terms.MinInterest,
		MaxInterest:   terms.MaxInterest,
	}
	if err := tx.LoanConfigs().Upsert(ctx, cfg); err != nil {
		return fmt.Errorf("upsert loan config %s: %w", cfg.ID(), err)
	}

	if !wasActive {
		if err := p.bumpCollectionActive(ctx, tx, proto, terms.NftCollection, +1); err != nil {
			return err
		}
	}
	return nil
}

// bumpCollectionActive adjusts a collection's active-config count by delta
// and keeps the protocol NftCollectionsCount in step with the 0 boundary.
func (p *Projector) bumpCollectionActive(ctx context.Context, tx domain.EntityTx, proto *domain.ProtocolInfo, collectionID string, delta int64) error {
	col, err := tx.Collections().Get(ctx, collectionID)
	if errors.Is(err, domain.ErrNotFound) {
		// Tolerated gap: the config referenced a collection outside the
		// projector's observed history.
		p.logger.WarnContext(ctx, "collection unknown, count not adjusted",
			slog.String("collection", collectionID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load collection %s: %w", collectionID, err)
	}

	before := col.ActiveLoanConfigsCount
	col.ActiveLoanConfigsCount += delta
	if col.ActiveLoanConfigsCount < 0 {
		return fmt.Errorf("collection %s active config count %d: %w",
			collectionID, col.ActiveLoanConfigsCount, domain.ErrInvariantViolated)
	}
	if before == 0 && col.ActiveLoanConfigsCount > 0 {
		proto.NftCollectionsCount++
	}
	if before > 0 && col.ActiveLoanConfigsCount == 0 {
		proto.NftCollectionsCount--
	}
	if err := tx.Collections().Update(ctx, col); err != nil {
		return fmt.Errorf("update collection %s: %w", collectionID, err)
	}
	return nil
}

// requireProtocol loads the singleton; its absence while desk or loan events
// flow means the feed skipped the deployment event, which is unrecoverable.
func (p *Projector) requireProtocol(ctx context.Context, tx domain.EntityTx) (domain.ProtocolInfo, error) {
	proto, err := tx.Protocol().Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ProtocolInfo{}, domain.ErrNotInitialized
	}
	if err != nil {
		return domain.ProtocolInfo{}, fmt.Errorf("load protocol info: %w", err)
	}
	return proto, nil
}

func bigOrZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}

func bigAdd(a, b *big.Int) *big.Int {
	return new(big.Int).Add(bigOrZero(a), bigOrZero(b))
}

func bigSub(a, b *big.Int) *big.Int {
	return new(big.Int).Sub(bigOrZero(a), bigOrZero(b))
}
