package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/paddockhq/paddock/pkg/notify"
	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

// DomainParams carries the operator-editable fields of a domain.
type DomainParams struct {
	Name        string
	Tags        []string
	Description string
}

// CreateDomain registers one free domain under a unique name.
func (inv *Inventory) CreateDomain(ctx context.Context, params DomainParams, actor string) (*types.Domain, error) {
	now := time.Now().UTC()
	domain := &types.Domain{
		ID:          uuid.New().String(),
		Name:        params.Name,
		Status:      types.DomainStatusFree,
		Tags:        params.Tags,
		Description: params.Description,
		CreatedBy:   actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := inv.store.Update(func(tx storage.Tx) error {
		if _, err := tx.GetDomainByName(params.Name); err == nil {
			return fmt.Errorf("domain %s: %w", params.Name, ErrNameTaken)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return tx.PutDomain(domain)
	})
	if err != nil {
		return nil, err
	}

	inv.logger.Info().Str("domain", domain.Name).Str("user", actor).Msg("Domain created")

	inv.notifier.Publish(ctx, notify.ChannelDomains, notify.Event{
		Action:     notify.ActionCreated,
		DomainID:   domain.ID,
		DomainName: domain.Name,
		User:       actor,
	})
	return domain, nil
}

// CreateDomains registers many domains at once, skipping names that
// already exist instead of failing the batch. One event is published
// per domain actually created.
func (inv *Inventory) CreateDomains(ctx context.Context, names []string, tags []string, actor string) ([]*types.Domain, []string, error) {
	var (
		created []*types.Domain
		skipped []string
	)

	now := time.Now().UTC()
	err := inv.store.Update(func(tx storage.Tx) error {
		created = created[:0]
		skipped = skipped[:0]

		for _, name := range names {
			_, err := tx.GetDomainByName(name)
			if err == nil {
				skipped = append(skipped, name)
				continue
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return err
			}

			domain := &types.Domain{
				ID:        uuid.New().String(),
				Name:      name,
				Status:    types.DomainStatusFree,
				Tags:      tags,
				CreatedBy: actor,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.PutDomain(domain); err != nil {
				return err
			}
			created = append(created, domain)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	inv.logger.Info().
		Int("created", len(created)).
		Int("skipped", len(skipped)).
		Str("user", actor).
		Msg("Domains created")

	for _, domain := range created {
		inv.notifier.Publish(ctx, notify.ChannelDomains, notify.Event{
			Action:     notify.ActionCreated,
			DomainID:   domain.ID,
			DomainName: domain.Name,
			User:       actor,
		})
	}
	return created, skipped, nil
}

// UpdateDomain replaces the operator-editable fields. The assignment
// status is untouched.
func (inv *Inventory) UpdateDomain(ctx context.Context, id string, params DomainParams, actor string) (*types.Domain, error) {
	var domain *types.Domain

	err := inv.store.Update(func(tx storage.Tx) error {
		var err error
		domain, err = tx.GetDomain(id)
		if err != nil {
			return err
		}

		if params.Name != domain.Name {
			if _, err := tx.GetDomainByName(params.Name); err == nil {
				return fmt.Errorf("domain %s: %w", params.Name, ErrNameTaken)
			} else if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}

		domain.Name = params.Name
		domain.Tags = params.Tags
		domain.Description = params.Description
		domain.UpdatedAt = time.Now().UTC()
		return tx.PutDomain(domain)
	})
	if err != nil {
		return nil, err
	}

	inv.logger.Info().Str("domain", domain.Name).Str("user", actor).Msg("Domain updated")

	inv.notifier.Publish(ctx, notify.ChannelDomains, notify.Event{
		Action:     notify.ActionUpdated,
		DomainID:   domain.ID,
		DomainName: domain.Name,
		User:       actor,
	})
	return domain, nil
}

// DeleteDomain removes a free domain. Assigned domains must be
// unassigned first.
func (inv *Inventory) DeleteDomain(ctx context.Context, id string, actor string) error {
	var domain *types.Domain

	err := inv.store.Update(func(tx storage.Tx) error {
		var err error
		domain, err = tx.GetDomain(id)
		if err != nil {
			return err
		}
		if domain.Status == types.DomainStatusAssigned {
			return fmt.Errorf("domain %s: %w", domain.Name, ErrDomainAssigned)
		}
		return tx.DeleteDomain(id)
	})
	if err != nil {
		return err
	}

	inv.logger.Info().Str("domain", domain.Name).Str("user", actor).Msg("Domain deleted")

	inv.notifier.Publish(ctx, notify.ChannelDomains, notify.Event{
		Action:     notify.ActionDeleted,
		DomainID:   domain.ID,
		DomainName: domain.Name,
		User:       actor,
	})
	return nil
}

// FreeDomains lists domains without an assignment, the pool auto
// placement draws from.
func (inv *Inventory) FreeDomains() ([]*types.Domain, error) {
	domains, err := inv.store.ListDomains()
	if err != nil {
		return nil, err
	}
	return lo.Filter(domains, func(domain *types.Domain, _ int) bool {
		return domain.Status == types.DomainStatusFree
	}), nil
}
