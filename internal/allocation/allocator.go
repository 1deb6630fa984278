package allocation

import (
	"sort"
	"strings"

	"lagoonstay/pkg/model"
)

const DefaultMaxRooms = 4

// Options tune a single allocation run.
type Options struct {
	AllowExtraBeds bool
	// PreferredTypes narrows candidates by room slug or type. When no
	// candidate matches, the preference is ignored rather than failing
	// the allocation.
	PreferredTypes []string
	// MaxRooms caps combination search size. Zero means DefaultMaxRooms.
	MaxRooms int
}

// Allocate picks the cheapest set of rooms that sleeps the requested
// guests. A single room that fits always wins; otherwise the smallest
// combination of rooms is searched, cheapest first; as a final resort
// rooms are stacked greedily by capacity. Returns nil when the guest
// count cannot be covered.
func Allocate(candidates []model.Room, guests int, opts Options) []model.Room {
	if guests <= 0 {
		return nil
	}

	maxRooms := opts.MaxRooms
	if maxRooms <= 0 {
		maxRooms = DefaultMaxRooms
	}

	rooms := filterPreferred(candidates, opts.PreferredTypes)
	if len(rooms) == 0 {
		return nil
	}

	type sized struct {
		room     model.Room
		capacity int
	}
	pool := make([]sized, 0, len(rooms))
	for _, room := range rooms {
		pool = append(pool, sized{room: room, capacity: RoomCapacity(room, opts.AllowExtraBeds)})
	}

	// Single room that fits: cheapest wins, room ID breaks price ties.
	bestSingle := -1
	for i, s := range pool {
		if s.capacity < guests {
			continue
		}
		if bestSingle == -1 ||
			s.room.PricePerNight < pool[bestSingle].room.PricePerNight ||
			(s.room.PricePerNight == pool[bestSingle].room.PricePerNight && s.room.ID < pool[bestSingle].room.ID) {
			bestSingle = i
		}
	}
	if bestSingle >= 0 {
		return []model.Room{pool[bestSingle].room}
	}

	// Smallest combination, cheapest at that size. Combinations are
	// visited in index order, so equal-price sets resolve to the first
	// candidate ordering deterministically.
	if maxRooms > len(pool) {
		maxRooms = len(pool)
	}
	for k := 2; k <= maxRooms; k++ {
		var best []int
		bestPrice := 0.0

		combinations(len(pool), k, func(indices []int) {
			capacity := 0
			price := 0.0
			for _, i := range indices {
				capacity += pool[i].capacity
				price += pool[i].room.PricePerNight
			}
			if capacity < guests {
				return
			}
			if best == nil || price < bestPrice {
				best = append(best[:0], indices...)
				bestPrice = price
			}
		})

		if best != nil {
			result := make([]model.Room, 0, len(best))
			for _, i := range best {
				result = append(result, pool[i].room)
			}
			return result
		}
	}

	// Greedy fallback: largest rooms first, price then ID as tiebreaks.
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].capacity != pool[j].capacity {
			return pool[i].capacity > pool[j].capacity
		}
		if pool[i].room.PricePerNight != pool[j].room.PricePerNight {
			return pool[i].room.PricePerNight < pool[j].room.PricePerNight
		}
		return pool[i].room.ID < pool[j].room.ID
	})

	var result []model.Room
	covered := 0
	for _, s := range pool {
		result = append(result, s.room)
		covered += s.capacity
		if covered >= guests {
			return result
		}
	}

	return nil
}

func filterPreferred(candidates []model.Room, preferred []string) []model.Room {
	if len(preferred) == 0 {
		return candidates
	}

	wanted := make(map[string]struct{}, len(preferred))
	for _, p := range preferred {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			wanted[p] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return candidates
	}

	var filtered []model.Room
	for _, room := range candidates {
		if _, ok := wanted[strings.ToLower(room.Slug)]; ok {
			filtered = append(filtered, room)
			continue
		}
		if _, ok := wanted[strings.ToLower(room.Type)]; ok {
			filtered = append(filtered, room)
		}
	}

	if len(filtered) == 0 {
		return candidates
	}
	return filtered
}

// combinations visits every k-subset of [0, n) in lexicographic index
// order. The slice passed to visit is reused between calls.
func combinations(n, k int, visit func(indices []int)) {
	if k > n || k <= 0 {
		return
	}

	indices := make([]int, k)
	for i := range indices {
		indices[i] = i
	}

	for {
		visit(indices)

		i := k - 1
		for i >= 0 && indices[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		indices[i]++
		for j := i + 1; j < k; j++ {
			indices[j] = indices[j-1] + 1
		}
	}
}
