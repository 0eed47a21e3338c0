package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paddockhq/paddock/pkg/notify"
	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

// ServerParams carries the operator-editable fields of a server.
// Counters, status and lock stamps are managed elsewhere and cannot be
// set through params.
type ServerParams struct {
	Name         string
	IP           string
	CapacityMode types.CapacityMode
	GroupID      string
	Config       string
	Description  string
}

// CreateServer registers a server with no domains assigned. The name
// must be unused and the capacity mode known.
func (inv *Inventory) CreateServer(ctx context.Context, params ServerParams, actor string) (*types.Server, error) {
	mode, err := types.ParseCapacityMode(string(params.CapacityMode))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	server := &types.Server{
		ID:             uuid.New().String(),
		Name:           params.Name,
		IP:             params.IP,
		Status:         types.ServerStatusFree,
		CapacityMode:   mode,
		MaxDomains:     mode.MaxDomains(),
		CurrentDomains: 0,
		GroupID:        params.GroupID,
		Config:         params.Config,
		Description:    params.Description,
		CreatedBy:      actor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = inv.store.Update(func(tx storage.Tx) error {
		if _, err := tx.GetServerByName(params.Name); err == nil {
			return fmt.Errorf("server %s: %w", params.Name, ErrNameTaken)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		if params.GroupID != "" {
			if _, err := tx.GetGroup(params.GroupID); err != nil {
				return err
			}
		}
		return tx.PutServer(server)
	})
	if err != nil {
		return nil, err
	}

	inv.logger.Info().
		Str("server", server.Name).
		Str("mode", string(server.CapacityMode)).
		Str("user", actor).
		Msg("Server created")

	inv.notifier.Publish(ctx, notify.ChannelServers, notify.Event{
		Action:     notify.ActionCreated,
		ServerID:   server.ID,
		ServerName: server.Name,
		User:       actor,
	})
	return server, nil
}

// UpdateServer replaces the operator-editable fields. Shrinking the
// capacity mode below the current domain count is refused, since the
// counter may never exceed the maximum.
func (inv *Inventory) UpdateServer(ctx context.Context, id string, params ServerParams, actor string) (*types.Server, error) {
	mode, err := types.ParseCapacityMode(string(params.CapacityMode))
	if err != nil {
		return nil, err
	}

	var server *types.Server
	err = inv.store.Update(func(tx storage.Tx) error {
		server, err = tx.GetServer(id)
		if err != nil {
			return err
		}

		if params.Name != server.Name {
			if _, err := tx.GetServerByName(params.Name); err == nil {
				return fmt.Errorf("server %s: %w", params.Name, ErrNameTaken)
			} else if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}

		if mode.MaxDomains() < server.CurrentDomains {
			return fmt.Errorf("mode %s allows %d domains but %d are assigned: %w",
				mode, mode.MaxDomains(), server.CurrentDomains, ErrServerInUse)
		}

		if params.GroupID != "" && params.GroupID != server.GroupID {
			if _, err := tx.GetGroup(params.GroupID); err != nil {
				return err
			}
		}

		server.Name = params.Name
		server.IP = params.IP
		server.CapacityMode = mode
		server.MaxDomains = mode.MaxDomains()
		server.GroupID = params.GroupID
		server.Config = params.Config
		server.Description = params.Description
		server.UpdatedAt = time.Now().UTC()
		return tx.PutServer(server)
	})
	if err != nil {
		return nil, err
	}

	inv.logger.Info().Str("server", server.Name).Str("user", actor).Msg("Server updated")

	inv.notifier.Publish(ctx, notify.ChannelServers, notify.Event{
		Action:     notify.ActionUpdated,
		ServerID:   server.ID,
		ServerName: server.Name,
		User:       actor,
	})
	return server, nil
}

// DeleteServer removes an empty server. Servers still holding domains
// must be drained through the engine first.
func (inv *Inventory) DeleteServer(ctx context.Context, id string, actor string) error {
	var server *types.Server

	err := inv.store.Update(func(tx storage.Tx) error {
		var err error
		server, err = tx.GetServer(id)
		if err != nil {
			return err
		}
		if server.CurrentDomains > 0 {
			return fmt.Errorf("server %s has %d domains: %w", server.Name, server.CurrentDomains, ErrServerInUse)
		}
		return tx.DeleteServer(id)
	})
	if err != nil {
		return err
	}

	inv.logger.Info().Str("server", server.Name).Str("user", actor).Msg("Server deleted")

	inv.notifier.Publish(ctx, notify.ChannelServers, notify.Event{
		Action:     notify.ActionDeleted,
		ServerID:   server.ID,
		ServerName: server.Name,
		User:       actor,
	})
	return nil
}
