// Package config loads prunepack's project configuration.
//
// Configuration is read with viper from prunepack.yaml, prunepack.toml or
// prunepack.json in the working directory (or an explicit --config file),
// then overridden by PRUNEPACK_* environment variables. Nested keys use an
// underscore in the environment: go.root becomes PRUNEPACK_GO_ROOT.
//
// An ecosystem block is enabled when its root is set.
package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/mod/modfile"

	"github.com/matzehuels/prunepack/pkg/errors"
	"github.com/matzehuels/prunepack/pkg/extract"
	"github.com/matzehuels/prunepack/pkg/project"
)

const (
	// AppName is used for the config file name, env prefix and cache dir.
	AppName = "prunepack"

	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "PRUNEPACK"

	// DefaultOutputDir is where archives are written.
	DefaultOutputDir = "/tmp/prunepack"

	// DefaultWorkers is the default unit worker pool size.
	DefaultWorkers = 8
)

// Config is the complete prunepack configuration.
type Config struct {
	OutputDir string `mapstructure:"output_dir"`
	Workers   int    `mapstructure:"workers"`
	CacheDir  string `mapstructure:"cache_dir"`
	NoCache   bool   `mapstructure:"no_cache"`

	Go         GoConfig         `mapstructure:"go"`
	TypeScript TypeScriptConfig `mapstructure:"typescript"`
}

// GoConfig describes a Go repository whose shared code is resolved with a
// compiler-backed lister.
type GoConfig struct {
	Root         string   `mapstructure:"root"`
	UnitsDir     string   `mapstructure:"units_dir"`
	SharedDir    string   `mapstructure:"shared_dir"`
	SharedDest   string   `mapstructure:"shared_dest"`
	ModulePrefix string   `mapstructure:"module_prefix"` // derived from go.mod when empty
	Lister       string   `mapstructure:"lister"`        // derived from units_dir when empty
	Registry     string   `mapstructure:"registry"`      // optional; the package tree is used otherwise
	Units        []string `mapstructure:"units"`
	CopyFiles    []string `mapstructure:"copy_files"`
	RootFiles    []string `mapstructure:"root_files"`
}

// Enabled reports whether the Go ecosystem is configured.
func (c GoConfig) Enabled() bool { return c.Root != "" }

// TypeScriptConfig describes a TypeScript workspace resolved through a
// registry of shared modules.
type TypeScriptConfig struct {
	Root             string   `mapstructure:"root"`
	SharedDir        string   `mapstructure:"shared_dir"`
	SharedDest       string   `mapstructure:"shared_dest"`
	Registry         string   `mapstructure:"registry"`
	Barrel           string   `mapstructure:"barrel"`
	SourceDir        string   `mapstructure:"source_dir"`
	Units            []string `mapstructure:"units"`
	ExcludeUnits     []string `mapstructure:"exclude_units"`
	ExcludeDirs      []string `mapstructure:"exclude_dirs"`
	LeafParents      []string `mapstructure:"leaf_parents"`
	CopyFiles        []string `mapstructure:"copy_files"`
	RootFiles        []string `mapstructure:"root_files"`
	SymbolRefinement bool     `mapstructure:"symbol_refinement"`
}

// Enabled reports whether the TypeScript ecosystem is configured.
func (c TypeScriptConfig) Enabled() bool { return c.Root != "" }

// Ecosystems returns the enabled ecosystems in a fixed order.
func (c *Config) Ecosystems() []project.Ecosystem {
	var out []project.Ecosystem
	if c.Go.Enabled() {
		out = append(out, project.Go)
	}
	if c.TypeScript.Enabled() {
		out = append(out, project.TypeScript)
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("cache_dir", DefaultCacheDir())
	v.SetDefault("no_cache", false)

	v.SetDefault("go.root", "")
	v.SetDefault("go.units_dir", "functions")
	v.SetDefault("go.shared_dir", "pkg")
	v.SetDefault("go.shared_dest", "pkg")
	v.SetDefault("go.module_prefix", "")
	v.SetDefault("go.lister", "")
	v.SetDefault("go.registry", "")
	v.SetDefault("go.units", []string{})
	v.SetDefault("go.copy_files", []string{"go.mod", "go.sum"})
	v.SetDefault("go.root_files", []string{"*.go"})

	v.SetDefault("typescript.root", "")
	v.SetDefault("typescript.shared_dir", "shared")
	v.SetDefault("typescript.shared_dest", "shared")
	v.SetDefault("typescript.registry", "")
	v.SetDefault("typescript.barrel", "")
	v.SetDefault("typescript.source_dir", "src")
	v.SetDefault("typescript.units", []string{})
	v.SetDefault("typescript.exclude_units", []string{"shared", "admin-cli", "mcp-server", "node_modules"})
	v.SetDefault("typescript.exclude_dirs", []string{})
	v.SetDefault("typescript.leaf_parents", []string{"integrations"})
	v.SetDefault("typescript.copy_files", []string{"package-lock.json"})
	v.SetDefault("typescript.root_files", []string{"package.json", "tsconfig.json"})
	v.SetDefault("typescript.symbol_refinement", false)
}

// Load reads the configuration. With an explicit path the file must exist;
// otherwise prunepack.{yaml,toml,json} is looked up in dir and defaults are
// used when none is found. It returns the file that was read, if any.
//
// Relative roots and registry paths are resolved against the config file's
// directory (or dir when no file was read).
func Load(path, dir string) (*Config, string, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", errors.Wrap(errors.ErrCodeConfigLoad, err, "read config %s", path)
		}
	} else {
		v.SetConfigName(AppName)
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return nil, "", errors.Wrap(errors.ErrCodeConfigLoad, err, "read config")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeConfigLoad, err, "parse config")
	}

	used := v.ConfigFileUsed()
	base := dir
	if used != "" {
		base = filepath.Dir(used)
	}
	cfg.resolvePaths(base)
	if cfg.Go.Lister == "" {
		cfg.Go.Lister = extract.GoLister(cfg.Go.UnitsDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, used, err
	}
	return &cfg, used, nil
}

func (c *Config) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Go.Root = abs(c.Go.Root)
	c.Go.Registry = abs(c.Go.Registry)
	c.TypeScript.Root = abs(c.TypeScript.Root)
	c.TypeScript.Registry = abs(c.TypeScript.Registry)
}

// Validate checks values that defaults cannot fix.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return errors.New(errors.ErrCodeConfigLoad, "workers must be at least 1, got %d", c.Workers)
	}
	if c.OutputDir == "" {
		return errors.New(errors.ErrCodeConfigLoad, "output_dir cannot be empty")
	}
	if c.TypeScript.Enabled() {
		if c.TypeScript.Registry == "" {
			return errors.New(errors.ErrCodeConfigLoad, "typescript.registry is required")
		}
		if c.TypeScript.Barrel == "" {
			return errors.New(errors.ErrCodeConfigLoad, "typescript.barrel is required")
		}
	}
	for _, name := range append(append([]string{}, c.Go.Units...), c.TypeScript.Units...) {
		if err := errors.ValidateUnitName(name); err != nil {
			return errors.Wrap(errors.ErrCodeConfigLoad, err, "configured unit")
		}
	}
	return nil
}

// GoModulePrefix returns the import path of the Go shared root, reading the
// module path from <root>/go.mod when module_prefix is not set.
func (c GoConfig) GoModulePrefix() (string, error) {
	if c.ModulePrefix != "" {
		return strings.TrimSuffix(c.ModulePrefix, "/"), nil
	}
	gomod := filepath.Join(c.Root, "go.mod")
	data, err := os.ReadFile(gomod)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeConfigLoad, err, "module_prefix not set and go.mod unreadable")
	}
	mod := modfile.ModulePath(data)
	if mod == "" {
		return "", errors.New(errors.ErrCodeConfigLoad, "no module directive in %s", gomod)
	}
	return mod + "/" + filepath.ToSlash(c.SharedDir), nil
}

// DefaultCacheDir returns $XDG_CACHE_HOME/prunepack, falling back to
// ~/.cache/prunepack.
func DefaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName, "cache")
	}
	return filepath.Join(home, ".cache", AppName)
}
