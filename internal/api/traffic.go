package api

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/uber/h3-go/v4"

	"adsbglobe/pkg/geo"
	"adsbglobe/pkg/traffic"
)

// DefaultDensityResolution is the H3 resolution used when ?res is absent.
// Resolution 3 cells are roughly 12,000 km² which suits a whole-globe view.
const DefaultDensityResolution = 3

// TrafficSource is the read side of the traffic engine.
type TrafficSource interface {
	Views() []traffic.View
	Lookup(id string) (traffic.View, bool)
	Len() int
	Cap() int
}

// TrafficHandler serves the tracked population.
type TrafficHandler struct {
	src     TrafficSource
	regions *geo.RegionIndex
}

// NewTrafficHandler creates a handler. regions may be nil.
func NewTrafficHandler(src TrafficSource, regions *geo.RegionIndex) *TrafficHandler {
	return &TrafficHandler{src: src, regions: regions}
}

// HandleList returns every tracked aircraft as a GeoJSON FeatureCollection.
func (h *TrafficHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	res, ok := parseResolution(w, r)
	if !ok {
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, v := range h.src.Views() {
		c := v.State.Coordinate
		f := geojson.NewFeature(orb.Point{c.Longitude, c.Latitude})
		f.ID = v.ID
		f.Properties["icao"] = v.ID
		f.Properties["heading"] = v.State.Heading
		f.Properties["last_relevant"] = v.State.LastRelevant
		if v.Type != "" {
			f.Properties["type"] = v.Type
		}
		if v.Registration != "" {
			f.Properties["registration"] = v.Registration
		}
		if cell, err := cellFor(c, res); err == nil {
			f.Properties["h3"] = cell.String()
		}
		if region, ok := h.regions.Lookup(c); ok {
			f.Properties["region"] = region.Name
		}
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		slog.Error("Failed to encode traffic", "error", err)
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write traffic response", "error", err)
	}
}

// DensityCell is the aircraft count of one H3 cell.
type DensityCell struct {
	Cell  string  `json:"cell"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Count int     `json:"count"`
}

// DensityResponse is returned by HandleDensity.
type DensityResponse struct {
	Resolution int           `json:"resolution"`
	Total      int           `json:"total"`
	Cells      []DensityCell `json:"cells"`
}

// HandleDensity bins the population into H3 cells, busiest first.
func (h *TrafficHandler) HandleDensity(w http.ResponseWriter, r *http.Request) {
	res, ok := parseResolution(w, r)
	if !ok {
		return
	}

	counts := make(map[h3.Cell]int)
	total := 0
	for _, v := range h.src.Views() {
		cell, err := cellFor(v.State.Coordinate, res)
		if err != nil {
			continue
		}
		counts[cell]++
		total++
	}

	cells := make([]DensityCell, 0, len(counts))
	for cell, n := range counts {
		dc := DensityCell{Cell: cell.String(), Count: n}
		if center, err := h3.CellToLatLng(cell); err == nil {
			dc.Lat, dc.Lon = center.Lat, center.Lng
		}
		cells = append(cells, dc)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Count != cells[j].Count {
			return cells[i].Count > cells[j].Count
		}
		return cells[i].Cell < cells[j].Cell
	})

	writeJSON(w, DensityResponse{Resolution: res, Total: total, Cells: cells})
}

// RegionsResponse is returned by HandleRegions.
type RegionsResponse struct {
	Regions   []geo.RegionCount `json:"regions"`
	Unmatched int               `json:"unmatched"`
}

// HandleRegions counts aircraft per configured region.
func (h *TrafficHandler) HandleRegions(w http.ResponseWriter, r *http.Request) {
	if h.regions.Len() == 0 {
		http.Error(w, "no regions configured", http.StatusNotFound)
		return
	}
	views := h.src.Views()
	coords := make([]geo.Coordinate, len(views))
	for i, v := range views {
		coords[i] = v.State.Coordinate
	}
	counts, unmatched := h.regions.Count(coords)
	writeJSON(w, RegionsResponse{Regions: counts, Unmatched: unmatched})
}

// HandleAircraft returns one aircraft with its state history.
func (h *TrafficHandler) HandleAircraft(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	v, ok := h.src.Lookup(id)
	if !ok {
		http.Error(w, "aircraft not tracked", http.StatusNotFound)
		return
	}
	writeJSON(w, v)
}

func parseResolution(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("res")
	if v == "" {
		return DefaultDensityResolution, true
	}
	res, err := strconv.Atoi(v)
	if err != nil || res < 0 || res > h3.MaxResolution {
		http.Error(w, "res must be an H3 resolution between 0 and 15", http.StatusBadRequest)
		return 0, false
	}
	return res, true
}

func cellFor(c geo.Coordinate, res int) (h3.Cell, error) {
	return h3.LatLngToCell(h3.NewLatLng(c.Latitude, c.Longitude), res)
}
