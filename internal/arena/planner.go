package arena

import (
	"fmt"
	"sort"
)

// Request describes a buffer that must live from FirstUse to LastUse
// (inclusive, in execution step order).
type Request struct {
	Name     string
	Size     int
	FirstUse int
	LastUse  int
}

// Placement is a planned buffer position within the head section.
type Placement struct {
	Request
	Offset int
}

// Planner assigns head offsets to buffers so that buffers whose lifetimes
// overlap never share bytes. Placement is greedy: largest buffers first, each
// at the lowest aligned offset free for its whole lifetime.
type Planner struct {
	requests []Request
}

// Add registers a buffer and returns its index in the plan.
func (p *Planner) Add(req Request) (int, error) {
	if req.Size < 0 {
		return 0, fmt.Errorf("buffer %q: negative size %d", req.Name, req.Size)
	}
	if req.LastUse < req.FirstUse {
		return 0, fmt.Errorf("buffer %q: last use %d before first use %d", req.Name, req.LastUse, req.FirstUse)
	}
	p.requests = append(p.requests, req)
	return len(p.requests) - 1, nil
}

// Len returns the number of registered buffers.
func (p *Planner) Len() int {
	return len(p.requests)
}

// Plan computes placements (indexed like Add) and the total head size.
func (p *Planner) Plan() ([]Placement, int) {
	order := make([]int, len(p.requests))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return p.requests[order[i]].Size > p.requests[order[j]].Size
	})

	placements := make([]Placement, len(p.requests))
	placed := make([]int, 0, len(p.requests))
	total := 0

	for _, idx := range order {
		req := p.requests[idx]

		// Live neighbours sorted by offset.
		live := make([]Placement, 0, len(placed))
		for _, other := range placed {
			if lifetimesOverlap(req, placements[other].Request) {
				live = append(live, placements[other])
			}
		}
		sort.Slice(live, func(i, j int) bool { return live[i].Offset < live[j].Offset })

		offset := 0
		for _, other := range live {
			if offset+req.Size <= other.Offset {
				break
			}
			offset = max(offset, Align(other.Offset+other.Size))
		}

		placements[idx] = Placement{Request: req, Offset: offset}
		placed = append(placed, idx)
		total = max(total, offset+req.Size)
	}

	return placements, Align(total)
}

// ValidatePlan checks that no two placements with overlapping lifetimes share
// bytes and that every placement is aligned and inside size.
func ValidatePlan(placements []Placement, size int) error {
	for i, a := range placements {
		if a.Offset%Alignment != 0 {
			return fmt.Errorf("buffer %q: offset %d not %d-byte aligned", a.Name, a.Offset, Alignment)
		}
		if a.Offset < 0 || a.Offset+a.Size > size {
			return fmt.Errorf("buffer %q: region [%d-%d] outside %d bytes", a.Name, a.Offset, a.Offset+a.Size, size)
		}
		for _, b := range placements[i+1:] {
			if !lifetimesOverlap(a.Request, b.Request) {
				continue
			}
			if a.Offset < b.Offset+b.Size && b.Offset < a.Offset+a.Size {
				return fmt.Errorf("buffers %q and %q: regions [%d-%d] and [%d-%d] overlap",
					a.Name, b.Name, a.Offset, a.Offset+a.Size, b.Offset, b.Offset+b.Size)
			}
		}
	}
	return nil
}

func lifetimesOverlap(a, b Request) bool {
	return a.FirstUse <= b.LastUse && b.FirstUse <= a.LastUse
}
