package geocode

import (
	"context"
	"hash/fnv"
	"route-optimization-service/internal/domain"
)

// StaticGeocoder resolves addresses from a fixed table. When Synthesize is set,
// unknown addresses get stable pseudo-coordinates inside Bounds instead of nil.
type StaticGeocoder struct {
	table      map[string]domain.Coordinates
	Synthesize bool
	// Bounds is {min, max}; defaults to a box around central Phoenix.
	Bounds [2]domain.Coordinates
}

func NewStaticGeocoder(table map[string]domain.Coordinates) *StaticGeocoder {
	m := make(map[string]domain.Coordinates, len(table))
	for addr, c := range table {
		m[domain.NormalizeAddress(addr)] = c
	}
	return &StaticGeocoder{
		table: m,
		Bounds: [2]domain.Coordinates{
			{Lon: -112.20, Lat: 33.35},
			{Lon: -111.90, Lat: 33.60},
		},
	}
}

func (g *StaticGeocoder) Geocode(ctx context.Context, address string) (*domain.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := domain.NormalizeAddress(address)
	if c, ok := g.table[addr]; ok {
		return &c, nil
	}
	if !g.Synthesize || addr == "" {
		return nil, nil
	}

	h := fnv.New64a()
	h.Write([]byte(addr))
	sum := h.Sum64()

	// Two independent fractions in [0, 1) from the hash halves.
	fx := float64(sum&0xffffffff) / float64(1<<32)
	fy := float64(sum>>32) / float64(1<<32)

	lo, hi := g.Bounds[0], g.Bounds[1]
	return &domain.Coordinates{
		Lon: lo.Lon + fx*(hi.Lon-lo.Lon),
		Lat: lo.Lat + fy*(hi.Lat-lo.Lat),
	}, nil
}
