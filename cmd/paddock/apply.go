package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/paddockhq/paddock/pkg/engine"
	"github.com/paddockhq/paddock/pkg/inventory"
	"github.com/paddockhq/paddock/pkg/ledger"
	"github.com/paddockhq/paddock/pkg/registry"
	"github.com/paddockhq/paddock/pkg/storage"
	"github.com/paddockhq/paddock/pkg/types"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply resource manifests",
	Long: `Apply Paddock resources from a YAML file. A file may hold several
documents separated by ---; each is applied in order.

Examples:
  # Register a server
  paddock apply -f server.yaml

  # Servers, domains and assignments in one file
  paddock apply -f fleet.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML file to apply (required)")
	applyCmd.Flags().String("actor", "", "User recorded on mutations (default: $USER)")
	_ = applyCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(applyCmd)
}

// Resource is the envelope every manifest document shares. Spec is
// decoded per kind.
type Resource struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ResourceMetadata `yaml:"metadata"`
	Spec       yaml.Node        `yaml:"spec"`
}

type ResourceMetadata struct {
	Name string `yaml:"name"`
}

type serverSpec struct {
	IP           string `yaml:"ip"`
	CapacityMode string `yaml:"capacityMode"`
	Group        string `yaml:"group"`
	Config       string `yaml:"config"`
	Description  string `yaml:"description"`
}

type domainSpec struct {
	// Names bulk-creates many domains in one document; when set the
	// metadata name is ignored.
	Names       []string `yaml:"names"`
	Tags        []string `yaml:"tags"`
	Description string   `yaml:"description"`
}

type groupSpec struct {
	Color       string `yaml:"color"`
	Description string `yaml:"description"`
}

type assignmentSpec struct {
	Domain string `yaml:"domain"`
	Server string `yaml:"server"`
}

type autoAssignSpec struct {
	// Domains to place, by name. Empty means every free domain.
	Domains      []string `yaml:"domains"`
	CapacityMode string   `yaml:"capacityMode"`
	// DistributeEvenly defaults to true when omitted.
	DistributeEvenly *bool `yaml:"distributeEvenly"`
}

// applier bundles the services one apply run needs.
type applier struct {
	inventory *inventory.Inventory
	registry  *registry.Registry
	engine    *engine.Engine
	actor     string
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	filename, _ := cmd.Flags().GetString("file")

	ctx := context.Background()

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	locker, closeLocker, err := buildLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	notifier, closeNotifier, err := buildNotifier(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()
	defer notifier.Close()

	led := ledger.New(store, notifier)
	a := &applier{
		inventory: inventory.New(store, locker, notifier),
		registry:  registry.New(store, notifier),
		engine:    engine.New(store, led),
		actor:     actorFlag(cmd),
	}

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	return a.applyAll(ctx, f)
}

// applyAll decodes a stream of YAML documents and applies each in order.
// The first failing document stops the run; earlier documents stay
// applied.
func (a *applier) applyAll(ctx context.Context, r io.Reader) error {
	decoder := yaml.NewDecoder(r)
	for i := 0; ; i++ {
		var resource Resource
		if err := decoder.Decode(&resource); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to parse document %d: %w", i+1, err)
		}

		if err := a.apply(ctx, &resource); err != nil {
			return fmt.Errorf("document %d (%s %s): %w", i+1, resource.Kind, resource.Metadata.Name, err)
		}
	}
}

func (a *applier) apply(ctx context.Context, resource *Resource) error {
	switch resource.Kind {
	case "Server":
		return a.applyServer(ctx, resource)
	case "Domain":
		return a.applyDomain(ctx, resource)
	case "ServerGroup":
		return a.applyGroup(ctx, resource)
	case "Assignment":
		return a.applyAssignment(ctx, resource)
	case "AutoAssign":
		return a.applyAutoAssign(ctx, resource)
	default:
		return fmt.Errorf("unsupported resource kind: %s", resource.Kind)
	}
}

func (a *applier) applyServer(ctx context.Context, resource *Resource) error {
	var spec serverSpec
	if err := resource.Spec.Decode(&spec); err != nil {
		return fmt.Errorf("failed to decode spec: %w", err)
	}

	name := resource.Metadata.Name
	if name == "" {
		return fmt.Errorf("server name is required")
	}

	params := inventory.ServerParams{
		Name:         name,
		IP:           spec.IP,
		CapacityMode: types.CapacityMode(spec.CapacityMode),
		Config:       spec.Config,
		Description:  spec.Description,
	}
	if spec.Group != "" {
		group, err := a.registry.GetGroupByName(spec.Group)
		if err != nil {
			return fmt.Errorf("group %q: %w", spec.Group, err)
		}
		params.GroupID = group.ID
	}

	existing, err := a.inventory.GetServerByName(name)
	if err == nil {
		fmt.Printf("Updating server: %s\n", name)
		if _, err := a.inventory.UpdateServer(ctx, existing.ID, params, a.actor); err != nil {
			return fmt.Errorf("failed to update server: %w", err)
		}
		fmt.Printf("✓ Server updated: %s\n", name)
		return nil
	}
	if !errors.Is(err, inventory.ErrNotFound) {
		return err
	}

	fmt.Printf("Creating server: %s\n", name)
	server, err := a.inventory.CreateServer(ctx, params, a.actor)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	fmt.Printf("✓ Server created: %s (ID: %s, capacity: %d)\n", name, server.ID, server.MaxDomains)
	return nil
}

func (a *applier) applyDomain(ctx context.Context, resource *Resource) error {
	var spec domainSpec
	if err := resource.Spec.Decode(&spec); err != nil {
		return fmt.Errorf("failed to decode spec: %w", err)
	}

	// Bulk form
	if len(spec.Names) > 0 {
		created, skipped, err := a.inventory.CreateDomains(ctx, spec.Names, spec.Tags, a.actor)
		if err != nil {
			return fmt.Errorf("failed to create domains: %w", err)
		}
		fmt.Printf("✓ Domains created: %d", len(created))
		if len(skipped) > 0 {
			fmt.Printf(" (skipped %d existing)", len(skipped))
		}
		fmt.Println()
		return nil
	}

	name := resource.Metadata.Name
	if name == "" {
		return fmt.Errorf("domain name is required")
	}

	params := inventory.DomainParams{
		Name:        name,
		Tags:        spec.Tags,
		Description: spec.Description,
	}

	existing, err := a.inventory.GetDomainByName(name)
	if err == nil {
		fmt.Printf("Updating domain: %s\n", name)
		if _, err := a.inventory.UpdateDomain(ctx, existing.ID, params, a.actor); err != nil {
			return fmt.Errorf("failed to update domain: %w", err)
		}
		fmt.Printf("✓ Domain updated: %s\n", name)
		return nil
	}
	if !errors.Is(err, inventory.ErrNotFound) {
		return err
	}

	fmt.Printf("Creating domain: %s\n", name)
	domain, err := a.inventory.CreateDomain(ctx, params, a.actor)
	if err != nil {
		return fmt.Errorf("failed to create domain: %w", err)
	}
	fmt.Printf("✓ Domain created: %s (ID: %s)\n", name, domain.ID)
	return nil
}

func (a *applier) applyGroup(ctx context.Context, resource *Resource) error {
	var spec groupSpec
	if err := resource.Spec.Decode(&spec); err != nil {
		return fmt.Errorf("failed to decode spec: %w", err)
	}

	name := resource.Metadata.Name
	if name == "" {
		return fmt.Errorf("group name is required")
	}

	params := registry.GroupParams{
		Name:        name,
		Color:       spec.Color,
		Description: spec.Description,
	}

	existing, err := a.registry.GetGroupByName(name)
	if err == nil {
		fmt.Printf("Updating group: %s\n", name)
		if _, err := a.registry.UpdateGroup(ctx, existing.ID, params, a.actor); err != nil {
			return fmt.Errorf("failed to update group: %w", err)
		}
		fmt.Printf("✓ Group updated: %s\n", name)
		return nil
	}
	if !errors.Is(err, registry.ErrNotFound) {
		return err
	}

	fmt.Printf("Creating group: %s\n", name)
	group, err := a.registry.CreateGroup(ctx, params, a.actor)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	fmt.Printf("✓ Group created: %s (ID: %s)\n", name, group.ID)
	return nil
}

func (a *applier) applyAssignment(ctx context.Context, resource *Resource) error {
	var spec assignmentSpec
	if err := resource.Spec.Decode(&spec); err != nil {
		return fmt.Errorf("failed to decode spec: %w", err)
	}
	if spec.Domain == "" || spec.Server == "" {
		return fmt.Errorf("assignment needs both domain and server")
	}

	domain, err := a.inventory.GetDomainByName(spec.Domain)
	if err != nil {
		return fmt.Errorf("domain %q: %w", spec.Domain, err)
	}
	server, err := a.inventory.GetServerByName(spec.Server)
	if err != nil {
		return fmt.Errorf("server %q: %w", spec.Server, err)
	}

	assignment, err := a.engine.CreateAssignment(ctx, domain.ID, server.ID, a.actor)
	if errors.Is(err, ledger.ErrDomainAssigned) {
		// Already placed; fine where it already sits on the wanted server.
		existing, lookupErr := a.engine.AssignmentForDomain(domain.ID)
		if lookupErr == nil && existing.ServerID == server.ID {
			fmt.Printf("Assignment already exists: %s -> %s (skipping)\n", spec.Domain, spec.Server)
			return nil
		}
		return fmt.Errorf("domain %q is already assigned elsewhere", spec.Domain)
	}
	if err != nil {
		return fmt.Errorf("failed to assign: %w", err)
	}

	fmt.Printf("✓ Assigned: %s -> %s (ID: %s)\n", spec.Domain, spec.Server, assignment.ID)
	return nil
}

func (a *applier) applyAutoAssign(ctx context.Context, resource *Resource) error {
	var spec autoAssignSpec
	if err := resource.Spec.Decode(&spec); err != nil {
		return fmt.Errorf("failed to decode spec: %w", err)
	}

	domainIDs, err := a.resolveDomains(spec.Domains)
	if err != nil {
		return err
	}
	if len(domainIDs) == 0 {
		fmt.Println("No free domains to assign")
		return nil
	}

	opts := engine.DefaultAutoOptions()
	opts.CapacityMode = types.CapacityMode(spec.CapacityMode)
	if spec.DistributeEvenly != nil {
		opts.DistributeEvenly = *spec.DistributeEvenly
	}

	result, err := a.engine.AutoAssign(ctx, domainIDs, a.actor, opts)
	if err != nil {
		return fmt.Errorf("failed to auto-assign: %w", err)
	}

	fmt.Printf("✓ Auto-assigned %d domains across %d servers\n", len(result.Assigned), result.ServersUsed)
	if len(result.FailedIDs) > 0 {
		fmt.Printf("  %d domains could not be placed\n", len(result.FailedIDs))
	}
	return nil
}

// resolveDomains maps manifest domain names to IDs; with no names it
// returns every free domain.
func (a *applier) resolveDomains(names []string) ([]string, error) {
	if len(names) == 0 {
		free, err := a.inventory.FreeDomains()
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(free))
		for _, domain := range free {
			ids = append(ids, domain.ID)
		}
		return ids, nil
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		domain, err := a.inventory.GetDomainByName(name)
		if err != nil {
			return nil, fmt.Errorf("domain %q: %w", name, err)
		}
		ids = append(ids, domain.ID)
	}
	return ids, nil
}
