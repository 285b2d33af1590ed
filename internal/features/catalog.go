// Package features matches crawled pages against a catalog of Baseline web
// platform features.
package features

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Years that are partitioned when a catalog is built.
const (
	Year2024 = 2024
	Year2025 = 2025
)

// BaselineLevel is the interoperability status of a feature.
type BaselineLevel string

// Baseline levels. A plain `true` in the catalog is read as high.
const (
	BaselineHigh BaselineLevel = "high"
	BaselineLow  BaselineLevel = "low"
	BaselineNone BaselineLevel = "false"
)

// UnmarshalYAML accepts high, low, true and false.
func (l *BaselineLevel) UnmarshalYAML(node *yaml.Node) error {
	switch strings.ToLower(strings.TrimSpace(node.Value)) {
	case "high", "true":
		*l = BaselineHigh
	case "low":
		*l = BaselineLow
	case "false", "":
		*l = BaselineNone
	default:
		return fmt.Errorf("line %d: unknown baseline status %q", node.Line, node.Value)
	}
	return nil
}

// Status is the catalog status block of a feature.
type Status struct {
	Baseline BaselineLevel `yaml:"baseline"`
	HighDate string        `yaml:"baseline_high_date"`
	LowDate  string        `yaml:"baseline_low_date"`
}

// Feature is one catalog entry.
type Feature struct {
	ID          string `yaml:"-"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Spec        string `yaml:"spec"`
	Status      Status `yaml:"status"`
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// BaselineYear returns the year the feature became widely available: the
// high date when present, else the low date. Dates may carry a ≤ prefix.
func (f Feature) BaselineYear() (int, bool) {
	date := f.Status.HighDate
	if date == "" {
		date = f.Status.LowDate
	}
	m := yearPattern.FindString(date)
	if m == "" {
		return 0, false
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return year, true
}

// Category classifies the feature by its spec URL.
func (f Feature) Category() baseline.FeatureCategory {
	spec := strings.ToLower(f.Spec)
	switch {
	case strings.Contains(spec, "css"):
		return baseline.FeatureCSS
	case strings.Contains(spec, "javascript"), strings.Contains(spec, "ecmascript"):
		return baseline.FeatureJavaScript
	case strings.Contains(spec, "html"):
		return baseline.FeatureHTML
	case strings.Contains(spec, "security"):
		return baseline.FeatureSecurity
	default:
		return baseline.FeatureWebAPI
	}
}

// Impact is the cost of lacking the feature, derived from its status.
func (f Feature) Impact() string {
	switch f.Status.Baseline {
	case BaselineHigh:
		return "high"
	case BaselineLow:
		return "medium"
	default:
		return "low"
	}
}

// InPartition reports whether the feature is widely available by year.
func (f Feature) InPartition(year int) bool {
	if f.Status.Baseline != BaselineHigh {
		return false
	}
	y, ok := f.BaselineYear()
	return ok && y <= year
}

// Catalog is an immutable feature set with precomputed year partitions.
// It is safe for concurrent use.
type Catalog struct {
	features   []Feature
	partitions map[int][]Feature
}

// NewCatalog builds a catalog from features keyed by id.
func NewCatalog(byID map[string]Feature) *Catalog {
	c := &Catalog{
		features:   make([]Feature, 0, len(byID)),
		partitions: make(map[int][]Feature, 2),
	}
	for id, f := range byID {
		f.ID = id
		c.features = append(c.features, f)
	}
	sort.Slice(c.features, func(i, j int) bool { return c.features[i].ID < c.features[j].ID })
	for _, year := range []int{Year2024, Year2025} {
		c.partitions[year] = c.partition(year)
	}
	return c
}

// LoadCatalog decodes a YAML catalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var byID map[string]Feature
	if err := yaml.NewDecoder(r).Decode(&byID); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode feature catalog: %w", err)
	}
	return NewCatalog(byID), nil
}

// LoadCatalogFile reads a catalog from path. An empty path selects the
// embedded default catalog.
func LoadCatalogFile(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feature catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(bytes.NewReader(defaultCatalog))
}

// Features returns every feature sorted by id.
func (c *Catalog) Features() []Feature {
	return append([]Feature(nil), c.features...)
}

// Len is the number of catalog features.
func (c *Catalog) Len() int {
	return len(c.features)
}

// Lookup returns the feature with id.
func (c *Catalog) Lookup(id string) (Feature, bool) {
	i := sort.Search(len(c.features), func(i int) bool { return c.features[i].ID >= id })
	if i < len(c.features) && c.features[i].ID == id {
		return c.features[i], true
	}
	return Feature{}, false
}

// Partition returns the features widely available by year. The returned
// slice must not be modified.
func (c *Catalog) Partition(year int) []Feature {
	if p, ok := c.partitions[year]; ok {
		return p
	}
	return c.partition(year)
}

func (c *Catalog) partition(year int) []Feature {
	out := []Feature{}
	for _, f := range c.features {
		if f.InPartition(year) {
			out = append(out, f)
		}
	}
	return out
}
