package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/mr1hm/go-radar-alerts/internal/models"
)

//go:embed regions.yaml
var defaultData []byte

var ErrUnknownRegion = errors.New("unknown region")

type file struct {
	WildcardRegion       string   `yaml:"wildcard_region"`
	Regions              []string `yaml:"regions"`
	SurfaceVesselRegions []string `yaml:"surface_vessel_regions"`
	BannedSubstrings     []string `yaml:"banned_substrings"`
	Channels             []string `yaml:"channels"`
}

// Registry is immutable reference data: canonical regions, the wildcard
// region, the surface vessel allowlist and the input denylist.
type Registry struct {
	wildcard models.Region
	regions  []models.Region // concrete, in file order
	order    []models.Region // concrete then wildcard, used for matching
	lowered  []string        // parallel to order
	vessel   map[models.Region]bool
	banned   []string // lowercased
	channels []string
}

// Default returns the embedded registry.
func Default() (*Registry, error) {
	return Parse(defaultData)
}

// Load reads a registry file, or the embedded default when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	return build(f)
}

func build(f file) (*Registry, error) {
	wildcard := canonical(f.WildcardRegion)
	if wildcard == "" {
		return nil, errors.New("registry: wildcard_region is required")
	}
	if len(f.Regions) == 0 {
		return nil, errors.New("registry: regions must not be empty")
	}

	r := &Registry{
		wildcard: models.Region(wildcard),
		vessel:   make(map[models.Region]bool, len(f.SurfaceVesselRegions)),
		channels: append([]string(nil), f.Channels...),
	}

	seen := map[string]bool{strings.ToLower(wildcard): true}
	for _, name := range f.Regions {
		name = canonical(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			return nil, fmt.Errorf("registry: empty or duplicate region %q", name)
		}
		seen[key] = true
		r.regions = append(r.regions, models.Region(name))
	}

	r.order = append(append([]models.Region(nil), r.regions...), r.wildcard)
	r.lowered = make([]string, len(r.order))
	for i, region := range r.order {
		r.lowered[i] = strings.ToLower(string(region))
	}

	for _, name := range f.SurfaceVesselRegions {
		region := models.Region(canonical(name))
		if !seen[strings.ToLower(string(region))] || region == r.wildcard {
			return nil, fmt.Errorf("registry: surface vessel region %q is not a concrete region", name)
		}
		r.vessel[region] = true
	}

	for _, s := range f.BannedSubstrings {
		if s = strings.ToLower(canonical(s)); s != "" {
			r.banned = append(r.banned, s)
		}
	}

	return r, nil
}

func canonical(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func (r *Registry) Wildcard() models.Region {
	return r.wildcard
}

func (r *Registry) IsWildcard(region models.Region) bool {
	return region == r.wildcard
}

// Regions returns the concrete regions in registry order.
func (r *Registry) Regions() []models.Region {
	return append([]models.Region(nil), r.regions...)
}

// VesselEligible reports whether surface vessel alerts apply to region.
func (r *Registry) VesselEligible(region models.Region) bool {
	return r.vessel[region]
}

func (r *Registry) Channels() []string {
	return append([]string(nil), r.channels...)
}
