package devapi

import (
	"sync"

	"github.com/tendant/idm-forms/pkg/catalog"
)

// SeedLaptops is the listing served when seeding is enabled.
var SeedLaptops = []catalog.Laptop{
	{ID: "1", Brand: "Lenovo", Model: "ThinkPad X1 Carbon", Price: 1499.99},
	{ID: "2", Brand: "Apple", Model: "MacBook Air 13", Price: 1099},
	{ID: "3", Brand: "Dell", Model: "XPS 13", Price: 1249.5},
	{ID: "4", Brand: "Framework", Model: "Laptop 13", Price: 1049},
	{ID: "5", Brand: "ASUS", Model: "Zenbook 14", Price: 899.99},
}

// LaptopStore is an ordered in-memory listing.
type LaptopStore struct {
	mu      sync.RWMutex
	order   []catalog.ID
	laptops map[catalog.ID]catalog.Laptop
}

func NewLaptopStore(seed ...catalog.Laptop) *LaptopStore {
	s := &LaptopStore{laptops: make(map[catalog.ID]catalog.Laptop)}
	for _, l := range seed {
		s.Put(l)
	}
	return s
}

// Put adds l, or replaces the laptop with the same id in place.
func (s *LaptopStore) Put(l catalog.Laptop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.laptops[l.ID]; !ok {
		s.order = append(s.order, l.ID)
	}
	s.laptops[l.ID] = l
}

func (s *LaptopStore) List() []catalog.Laptop {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Laptop, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.laptops[id])
	}
	return out
}

func (s *LaptopStore) Get(id catalog.ID) (catalog.Laptop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.laptops[id]
	return l, ok
}
