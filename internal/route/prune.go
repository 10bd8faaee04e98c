package route

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/wanderlane/tour-cli/internal/geo"
	"github.com/wanderlane/tour-cli/internal/model"
	"github.com/wanderlane/tour-cli/pkg/directions"
)

var errNoRoute = eris.New("route: no path between stops")

// buildForStart computes the start's full route and greedily prunes it
// until both budgets hold or only two stops remain. A nil geometry result
// at any point abandons this start.
func (b *Builder) buildForStart(ctx context.Context, start stop, all []stop) (*candidate, error) {
	// Start first, everything else in document order.
	current := make([]stop, 0, len(all))
	current = append(current, start)
	for _, s := range all {
		if s.poi.ID != start.poi.ID {
			current = append(current, s)
		}
	}

	ordered, route, err := b.requestOrdered(ctx, current)
	if err != nil {
		return nil, err
	}

	for b.overBudget(ordered, route) && len(ordered) > 2 {
		ordered = removeWorst(ordered, route, b.cfg.ValueLossEpsilon)
		ordered, route, err = b.requestOrdered(ctx, ordered)
		if err != nil {
			return nil, err
		}
	}

	return &candidate{
		start:  start,
		stops:  ordered,
		route:  route,
		distKM: route.TotalDistanceMeters() / 1000,
	}, nil
}

func (b *Builder) overBudget(ordered []stop, route *directions.Route) bool {
	return route.TotalDistanceMeters()/1000 > b.cfg.MaxDistanceKM || len(ordered) > b.cfg.MaxStops
}

// requestOrdered asks the geometry capability for an optimized route over
// the stops (first fixed as origin, last as destination) and returns the
// stops in visiting order alongside the geometry.
func (b *Builder) requestOrdered(ctx context.Context, stops []stop) ([]stop, *directions.Route, error) {
	origin := stops[0]
	dest := stops[len(stops)-1]
	middle := stops[1 : len(stops)-1]

	req := directions.Request{
		Origin:      directions.Point{Lat: origin.coord.Lat, Lng: origin.coord.Lng},
		Destination: directions.Point{Lat: dest.coord.Lat, Lng: dest.coord.Lng},
		Mode:        b.cfg.Mode,
		Optimize:    true,
	}
	for _, s := range middle {
		req.Waypoints = append(req.Waypoints, directions.Point{Lat: s.coord.Lat, Lng: s.coord.Lng})
	}

	route, err := b.geo.ComputeRoute(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if route == nil {
		return nil, nil, errNoRoute
	}

	ordered := make([]stop, 0, len(stops))
	ordered = append(ordered, origin)
	if len(route.WaypointOrder) == len(middle) {
		for _, idx := range route.WaypointOrder {
			ordered = append(ordered, middle[idx])
		}
	} else {
		ordered = append(ordered, middle...)
	}
	ordered = append(ordered, dest)
	return ordered, route, nil
}

// removeWorst drops the non-start stop with the best distance-saved per
// value-lost ratio. Distance saved is estimated from the current visiting
// order; a zero value loss is floored so free stops go first.
func removeWorst(ordered []stop, route *directions.Route, valueEps float64) []stop {
	bestIdx := -1
	bestRatio := -1.0
	for i := 1; i < len(ordered); i++ {
		saved := detourSavedM(ordered, route, i)
		loss := ordered[i].value
		if loss < valueEps {
			loss = valueEps
		}
		ratio := saved / loss
		if ratio > bestRatio {
			bestRatio = ratio
			bestIdx = i
		}
	}
	out := make([]stop, 0, len(ordered)-1)
	for i, s := range ordered {
		if i != bestIdx {
			out = append(out, s)
		}
	}
	return out
}

// detourSavedM estimates the meters saved by removing stop i: the two legs
// touching it, minus the direct hop its neighbors would walk instead. Leg
// distances come from the geometry when aligned, falling back to spherical
// estimates.
func detourSavedM(ordered []stop, route *directions.Route, i int) float64 {
	legDist := func(j int) float64 {
		if route != nil && j < len(route.Legs) {
			return route.Legs[j].DistanceMeters
		}
		return geo.HaversineM(ordered[j].coord, ordered[j+1].coord)
	}

	if i == len(ordered)-1 {
		// Final stop: the whole last leg disappears.
		return legDist(i - 1)
	}
	in := legDist(i - 1)
	out := legDist(i)
	direct := geo.HaversineM(ordered[i-1].coord, ordered[i+1].coord)
	saved := in + out - direct
	if saved < 0 {
		saved = 0
	}
	return saved
}

// assemble converts the winning candidate into the itinerary artifact.
func (b *Builder) assemble(doc *model.Document, c *candidate) *model.Itinerary {
	it := &model.Itinerary{
		ComputedAt: b.now().UTC(),
		City:       doc.Meta.City,
		TourTitle:  doc.Meta.TourTitle,
		Mode:       b.cfg.Mode,
		StartID:    c.start.poi.ID,
		StartScore: model.Round4(c.start.value),
		Polyline:   c.route.Polyline,
	}
	for _, s := range c.stops {
		coord := s.coord
		it.Stops = append(it.Stops, model.Stop{
			POIID:      s.poi.ID,
			Name:       s.poi.Name,
			Address:    s.poi.Address,
			Location:   &coord,
			Teaser:     s.poi.Teaser,
			ValueScore: model.Round4(s.value),
		})
	}
	for i, leg := range c.route.Legs {
		l := model.Leg{
			DistanceMeters: leg.DistanceMeters,
			DurationSec:    leg.DurationSec,
			Summary:        leg.Summary,
		}
		if i+1 < len(c.stops) {
			l.FromID = c.stops[i].poi.ID
			l.ToID = c.stops[i+1].poi.ID
		}
		it.Legs = append(it.Legs, l)
	}

	distKM := c.route.TotalDistanceMeters() / 1000
	walkMin := c.route.TotalDurationSec() / 60
	it.Summary = model.RouteSummary{
		Stops:        len(c.stops),
		DistanceKM:   model.Round4(distKM),
		WalkMinutes:  model.Round4(walkMin),
		VisitMinutes: model.Round4(walkMin + b.cfg.VisitMinutesPerStop*float64(len(c.stops))),
		Effort:       model.EffortLabel(distKM),
	}
	return it
}
