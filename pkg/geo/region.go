package geo

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Region is a named area matched by RegionIndex.
type Region struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

type regionFeature struct {
	region Region
	geom   orb.Geometry
	bound  orb.Bound
}

// RegionIndex resolves coordinates to the polygon regions loaded from GeoJSON
// layers (country borders, airspace boundaries). Later layers are checked
// after earlier ones.
type RegionIndex struct {
	mu       sync.RWMutex
	features []regionFeature
}

// NewRegionIndex loads each GeoJSON FeatureCollection at paths.
func NewRegionIndex(paths ...string) (*RegionIndex, error) {
	idx := &RegionIndex{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read geojson %s: %w", path, err)
		}
		if err := idx.Load(data); err != nil {
			return nil, fmt.Errorf("failed to parse geojson %s: %w", path, err)
		}
	}
	return idx, nil
}

// Load adds the polygon features of a FeatureCollection. Features without
// an area geometry or without a name are skipped.
func (idx *RegionIndex) Load(data []byte) error {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return err
	}

	var added []regionFeature
	for _, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}
		name := stringProp(f.Properties, "name", "NAME", "ADMIN")
		if name == "" {
			continue
		}
		added = append(added, regionFeature{
			region: Region{Name: name, Code: regionCode(f.Properties)},
			geom:   f.Geometry,
			bound:  f.Geometry.Bound(),
		})
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.features = append(idx.features, added...)
	return nil
}

// Len returns the number of loaded regions.
func (idx *RegionIndex) Len() int {
	if idx == nil {
		return 0
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.features)
}

// Lookup returns the first region containing c.
func (idx *RegionIndex) Lookup(c Coordinate) (Region, bool) {
	if idx == nil {
		return Region{}, false
	}
	point := orb.Point{c.Longitude, c.Latitude}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for _, f := range idx.features {
		if !f.bound.Contains(point) {
			continue
		}
		if containsPoint(f.geom, point) {
			return f.region, true
		}
	}
	return Region{}, false
}

// RegionCount is the number of coordinates that fell in one region.
type RegionCount struct {
	Region
	Count int `json:"count"`
}

// Count tallies coordinates per region, largest first. Coordinates outside
// every region are returned as unmatched.
func (idx *RegionIndex) Count(coords []Coordinate) (counts []RegionCount, unmatched int) {
	byName := make(map[Region]int)
	for _, c := range coords {
		r, ok := idx.Lookup(c)
		if !ok {
			unmatched++
			continue
		}
		byName[r]++
	}

	counts = make([]RegionCount, 0, len(byName))
	for r, n := range byName {
		counts = append(counts, RegionCount{Region: r, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Name < counts[j].Name
	})
	return counts, unmatched
}

func containsPoint(geom orb.Geometry, point orb.Point) bool {
	switch g := geom.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, point)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, point)
	}
	return false
}

// stringProp returns the first non-empty string property among keys.
func stringProp(props geojson.Properties, keys ...string) string {
	for _, key := range keys {
		switch v := props[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return string(v)
		}
	}
	return ""
}

// regionCode prefers an explicit code, then Natural Earth ISO codes. Natural
// Earth marks some territories with -99 in ISO_A2 (France, Kosovo).
func regionCode(props geojson.Properties) string {
	for _, key := range []string{"code", "ISO_A2", "iso_a2", "ISO_A2_EH", "iso_a2_eh"} {
		if c := stringProp(props, key); c != "" && c != "-99" {
			return c
		}
	}
	return ""
}
