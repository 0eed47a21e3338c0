package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paddockhq/paddock/pkg/inventory"
	"github.com/paddockhq/paddock/pkg/log"
	"github.com/paddockhq/paddock/pkg/notify"
	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

// Sentinels shared with the other record-owning packages.
var (
	ErrNotFound  = storage.ErrNotFound
	ErrNameTaken = inventory.ErrNameTaken
)

// Registry manages server groups and their membership. A group is an
// organizational label: membership never affects placement, capacity
// or locking, and its aggregate figures are summed from the live
// member servers on every read.
type Registry struct {
	store    storage.Store
	notifier notify.Publisher
	logger   zerolog.Logger
}

func New(store storage.Store, notifier notify.Publisher) *Registry {
	return &Registry{
		store:    store,
		notifier: notifier,
		logger:   log.WithComponent("registry"),
	}
}

// GroupParams carries the operator-editable fields of a group.
type GroupParams struct {
	Name        string
	Color       string
	Description string
}

// Summary is the read projection of a group with its aggregates
// computed from current members.
type Summary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Color         string `json:"color,omitempty"`
	Description   string `json:"description,omitempty"`
	ServerCount   int    `json:"server_count"`
	TotalDomains  int    `json:"total_domains"`
	TotalCapacity int    `json:"total_capacity"`
}

// CreateGroup registers a group under a unique name.
func (r *Registry) CreateGroup(ctx context.Context, params GroupParams, actor string) (*types.ServerGroup, error) {
	now := time.Now().UTC()
	group := &types.ServerGroup{
		ID:          uuid.New().String(),
		Name:        params.Name,
		Color:       params.Color,
		Description: params.Description,
		CreatedBy:   actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := r.store.Update(func(tx storage.Tx) error {
		if _, err := tx.GetGroupByName(params.Name); err == nil {
			return fmt.Errorf("group %s: %w", params.Name, ErrNameTaken)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return tx.PutGroup(group)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info().Str("group", group.Name).Str("user", actor).Msg("Group created")

	r.notifier.Publish(ctx, notify.ChannelGroups, notify.Event{
		Action:    notify.ActionCreated,
		GroupID:   group.ID,
		GroupName: group.Name,
		User:      actor,
	})
	return group, nil
}

// GetGroup returns one group by ID.
func (r *Registry) GetGroup(id string) (*types.ServerGroup, error) {
	return r.store.GetGroup(id)
}

// GetGroupByName returns one group by its unique name.
func (r *Registry) GetGroupByName(name string) (*types.ServerGroup, error) {
	return r.store.GetGroupByName(name)
}

// ListGroups returns all groups.
func (r *Registry) ListGroups() ([]*types.ServerGroup, error) {
	return r.store.ListGroups()
}

// Members lists the servers currently referencing the group.
func (r *Registry) Members(groupID string) ([]*types.Server, error) {
	var members []*types.Server
	err := r.store.View(func(tx storage.Tx) error {
		if _, err := tx.GetGroup(groupID); err != nil {
			return err
		}
		var lerr error
		members, lerr = groupMembers(tx, groupID)
		return lerr
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

// UpdateGroup replaces the operator-editable fields.
func (r *Registry) UpdateGroup(ctx context.Context, id string, params GroupParams, actor string) (*types.ServerGroup, error) {
	var group *types.ServerGroup

	err := r.store.Update(func(tx storage.Tx) error {
		var err error
		group, err = tx.GetGroup(id)
		if err != nil {
			return err
		}

		if params.Name != group.Name {
			if _, err := tx.GetGroupByName(params.Name); err == nil {
				return fmt.Errorf("group %s: %w", params.Name, ErrNameTaken)
			} else if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}

		group.Name = params.Name
		group.Color = params.Color
		group.Description = params.Description
		group.UpdatedAt = time.Now().UTC()
		return tx.PutGroup(group)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info().Str("group", group.Name).Str("user", actor).Msg("Group updated")

	r.notifier.Publish(ctx, notify.ChannelGroups, notify.Event{
		Action:    notify.ActionUpdated,
		GroupID:   group.ID,
		GroupName: group.Name,
		User:      actor,
	})
	return group, nil
}

// DeleteGroup removes the group and detaches its members. The servers
// themselves survive with an empty group reference.
func (r *Registry) DeleteGroup(ctx context.Context, id string, actor string) error {
	var (
		group    *types.ServerGroup
		detached []*types.Server
	)

	err := r.store.Update(func(tx storage.Tx) error {
		var err error
		group, err = tx.GetGroup(id)
		if err != nil {
			return err
		}

		detached, err = groupMembers(tx, id)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, server := range detached {
			server.GroupID = ""
			server.UpdatedAt = now
			if err := tx.PutServer(server); err != nil {
				return err
			}
		}
		return tx.DeleteGroup(id)
	})
	if err != nil {
		return err
	}

	r.logger.Info().
		Str("group", group.Name).
		Int("detached", len(detached)).
		Str("user", actor).
		Msg("Group deleted")

	r.notifier.Publish(ctx, notify.ChannelGroups, notify.Event{
		Action:    notify.ActionDeleted,
		GroupID:   group.ID,
		GroupName: group.Name,
		User:      actor,
	})
	for _, server := range detached {
		r.notifier.Publish(ctx, notify.ChannelGroups, notify.Event{
			Action:     notify.ActionUpdated,
			GroupID:    group.ID,
			GroupName:  group.Name,
			ServerID:   server.ID,
			ServerName: server.Name,
			User:       actor,
		})
	}
	return nil
}

// AssignServers points the given servers at the group. A server
// already in another group moves silently; unknown IDs are collected
// as failures without failing the rest.
func (r *Registry) AssignServers(ctx context.Context, groupID string, serverIDs []string, actor string) (int, []string, error) {
	var (
		group    *types.ServerGroup
		moved    []*types.Server
		failedID []string
	)

	err := r.store.Update(func(tx storage.Tx) error {
		moved = moved[:0]
		failedID = failedID[:0]

		var err error
		group, err = tx.GetGroup(groupID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, id := range serverIDs {
			server, err := tx.GetServer(id)
			if errors.Is(err, storage.ErrNotFound) {
				failedID = append(failedID, id)
				continue
			}
			if err != nil {
				return err
			}

			server.GroupID = groupID
			server.UpdatedAt = now
			if err := tx.PutServer(server); err != nil {
				return err
			}
			moved = append(moved, server)
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	r.logger.Info().
		Str("group", group.Name).
		Int("assigned", len(moved)).
		Int("failed", len(failedID)).
		Str("user", actor).
		Msg("Servers assigned to group")

	for _, server := range moved {
		r.notifier.Publish(ctx, notify.ChannelGroups, notify.Event{
			Action:     notify.ActionUpdated,
			GroupID:    group.ID,
			GroupName:  group.Name,
			ServerID:   server.ID,
			ServerName: server.Name,
			User:       actor,
		})
	}
	return len(moved), failedID, nil
}

// RemoveServers clears the group reference on the given servers, but
// only where it currently points at this group. Anything else is a
// no-op, not a failure.
func (r *Registry) RemoveServers(ctx context.Context, groupID string, serverIDs []string, actor string) (int, error) {
	var (
		group   *types.ServerGroup
		removed []*types.Server
	)

	err := r.store.Update(func(tx storage.Tx) error {
		removed = removed[:0]

		var err error
		group, err = tx.GetGroup(groupID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, id := range serverIDs {
			server, err := tx.GetServer(id)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if server.GroupID != groupID {
				continue
			}

			server.GroupID = ""
			server.UpdatedAt = now
			if err := tx.PutServer(server); err != nil {
				return err
			}
			removed = append(removed, server)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info().
		Str("group", group.Name).
		Int("removed", len(removed)).
		Str("user", actor).
		Msg("Servers removed from group")

	for _, server := range removed {
		r.notifier.Publish(ctx, notify.ChannelGroups, notify.Event{
			Action:     notify.ActionUpdated,
			GroupID:    group.ID,
			GroupName:  group.Name,
			ServerID:   server.ID,
			ServerName: server.Name,
			User:       actor,
		})
	}
	return len(removed), nil
}

// Summarize projects one group with aggregates summed from its live
// members.
func (r *Registry) Summarize(groupID string) (*Summary, error) {
	var summary *Summary
	err := r.store.View(func(tx storage.Tx) error {
		group, err := tx.GetGroup(groupID)
		if err != nil {
			return err
		}
		members, err := groupMembers(tx, groupID)
		if err != nil {
			return err
		}
		summary = summarize(group, members)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// SummarizeAll projects every group in one consistent snapshot.
func (r *Registry) SummarizeAll() ([]*Summary, error) {
	var summaries []*Summary
	err := r.store.View(func(tx storage.Tx) error {
		groups, err := tx.ListGroups()
		if err != nil {
			return err
		}
		servers, err := tx.ListServers()
		if err != nil {
			return err
		}

		byGroup := make(map[string][]*types.Server)
		for _, server := range servers {
			if server.GroupID != "" {
				byGroup[server.GroupID] = append(byGroup[server.GroupID], server)
			}
		}

		summaries = make([]*Summary, 0, len(groups))
		for _, group := range groups {
			summaries = append(summaries, summarize(group, byGroup[group.ID]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func summarize(group *types.ServerGroup, members []*types.Server) *Summary {
	summary := &Summary{
		ID:          group.ID,
		Name:        group.Name,
		Color:       group.Color,
		Description: group.Description,
		ServerCount: len(members),
	}
	for _, server := range members {
		summary.TotalDomains += server.CurrentDomains
		summary.TotalCapacity += server.MaxDomains
	}
	return summary
}

func groupMembers(tx storage.Tx, groupID string) ([]*types.Server, error) {
	servers, err := tx.ListServers()
	if err != nil {
		return nil, err
	}
	var members []*types.Server
	for _, server := range servers {
		if server.GroupID == groupID {
			members = append(members, server)
		}
	}
	return members, nil
}
