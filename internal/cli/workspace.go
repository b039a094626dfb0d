package cli

import (
	"context"
	"os"
	"slices"

	"github.com/matzehuels/prunepack/internal/config"
	"github.com/matzehuels/prunepack/pkg/cache"
	"github.com/matzehuels/prunepack/pkg/errors"
	"github.com/matzehuels/prunepack/pkg/extract"
	"github.com/matzehuels/prunepack/pkg/pipeline"
	"github.com/matzehuels/prunepack/pkg/project"
	"github.com/matzehuels/prunepack/pkg/registry"
	"github.com/matzehuels/prunepack/pkg/resolve"
)

// =============================================================================
// Configuration
// =============================================================================

// config loads the configuration without requiring an ecosystem.
func (c *CLI) config() (*config.Config, error) {
	dir := c.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigLoad, err, "determine working directory")
		}
		dir = wd
	}
	cfg, used, err := config.Load(c.configPath, dir)
	if err != nil {
		return nil, err
	}
	if used != "" {
		c.Logger.Debug("loaded config", "file", used)
	}
	return cfg, nil
}

// projectConfig loads the configuration and requires at least one
// configured ecosystem.
func (c *CLI) projectConfig() (*config.Config, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	if len(cfg.Ecosystems()) == 0 {
		return nil, errors.New(errors.ErrCodeConfigLoad, "no ecosystem configured: set go.root or typescript.root")
	}
	return cfg, nil
}

// ecosystems resolves the --ecosystem flag against the configuration.
func ecosystems(cfg *config.Config, flag string) ([]project.Ecosystem, error) {
	if flag == "" {
		return cfg.Ecosystems(), nil
	}
	eco, err := project.ParseEcosystem(flag)
	if err != nil {
		return nil, err
	}
	if cfg.Descriptor(eco) == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "ecosystem %s is not configured", eco)
	}
	return []project.Ecosystem{eco}, nil
}

// newCache opens the extraction cache, degrading to a null cache when it is
// disabled or unusable.
func (c *CLI) newCache(cfg *config.Config) cache.Cache {
	if cfg.NoCache {
		return cache.Disabled()
	}
	store, err := cache.NewFileCache(cfg.CacheDir)
	if err != nil {
		c.Logger.Warn("extraction cache disabled", "dir", cfg.CacheDir, "error", err)
		return cache.Disabled()
	}
	return store
}

// =============================================================================
// Ecosystem Assembly
// =============================================================================

// openRegistry returns the descriptor and registry of eco.
func openRegistry(cfg *config.Config, eco project.Ecosystem) (*project.Descriptor, *registry.Registry, error) {
	d := cfg.Descriptor(eco)
	if d == nil {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "ecosystem %s is not configured", eco)
	}

	var (
		reg *registry.Registry
		err error
	)
	switch eco {
	case project.Go:
		if cfg.Go.Registry != "" {
			reg, err = registry.Load(cfg.Go.Registry)
		} else {
			reg, err = registry.FromPackageTree(d.SharedDir, ".go")
		}
	case project.TypeScript:
		reg, err = registry.Load(cfg.TypeScript.Registry, registry.WithBarrel(cfg.TypeScript.Barrel))
	}
	if err != nil {
		return nil, nil, err
	}
	return d, reg, nil
}

// openEcosystem assembles the pipeline inputs of eco. store may be nil.
func (c *CLI) openEcosystem(cfg *config.Config, eco project.Ecosystem, store cache.Cache) (*pipeline.Ecosystem, error) {
	d, reg, err := openRegistry(cfg, eco)
	if err != nil {
		return nil, err
	}

	var (
		inner   extract.Extractor
		refiner resolve.BarrelRefiner
	)
	switch eco {
	case project.Go:
		prefix, err := cfg.Go.GoModulePrefix()
		if err != nil {
			return nil, err
		}
		inner = extract.NewListerExtractor(d.Root, cfg.Go.Lister, prefix, c.Logger)
		refiner = resolve.RefinerFor(false)
	case project.TypeScript:
		inner = extract.NewPatternExtractor(reg.Barrel(), cfg.TypeScript.ExcludeDirs, c.Logger)
		refiner = resolve.RefinerFor(cfg.TypeScript.SymbolRefinement)
	}

	c.Logger.Debug("opened ecosystem", "ecosystem", eco, "modules", reg.Len(), "patterns", len(reg.Patterns()))
	return &pipeline.Ecosystem{
		Descriptor: d,
		Registry:   reg,
		Extractor:  extract.NewCachedExtractor(inner, store, d.SharedDir, c.Logger),
		Resolver:   resolve.New(reg, refiner, c.Logger),
	}, nil
}

// =============================================================================
// Targets
// =============================================================================

// target is one ecosystem and the units selected in it.
type target struct {
	eco   *pipeline.Ecosystem
	units []project.Unit
}

// targets opens the selected ecosystems and picks units by name. A name
// must exist in at least one selected ecosystem; no names selects every
// discovered unit.
func (c *CLI) targets(ctx context.Context, cfg *config.Config, ecoFlag string, names []string, store cache.Cache) ([]target, error) {
	ecos, err := ecosystems(cfg, ecoFlag)
	if err != nil {
		return nil, err
	}

	var (
		out   []target
		all   []project.Unit
		found = make(map[string]bool)
	)
	for _, eco := range ecos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, err := c.openEcosystem(cfg, eco, store)
		if err != nil {
			return nil, err
		}
		units, err := e.Descriptor.Discover()
		if err != nil {
			return nil, err
		}
		all = append(all, units...)

		if len(names) > 0 {
			units = slices.DeleteFunc(units, func(u project.Unit) bool { return !slices.Contains(names, u.Name) })
			for _, u := range units {
				found[u.Name] = true
			}
		}
		out = append(out, target{eco: e, units: units})
	}

	for _, name := range names {
		if !found[name] {
			_, err := project.Select(all, []string{name})
			return nil, err
		}
	}
	return out, nil
}
