package listing

// Collector accumulates listings across several search pages and drops
// repeated ad ids. The first occurrence wins; duplicates are expected when
// search filters overlap and are not reported.
//
// A Collector belongs to a single scan and is not safe for concurrent use.
type Collector struct {
	seen     map[string]struct{}
	listings []Listing
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{seen: make(map[string]struct{})}
}

// Add records l unless its ad id was already seen. It returns true when the
// listing was added. Listings without an ad id are rejected.
func (c *Collector) Add(l Listing) bool {
	if l.AdID == "" {
		return false
	}
	if _, ok := c.seen[l.AdID]; ok {
		return false
	}
	c.seen[l.AdID] = struct{}{}
	c.listings = append(c.listings, l)
	return true
}

// Len returns the number of collected listings.
func (c *Collector) Len() int {
	return len(c.listings)
}

// Listings returns the collected listings in insertion order.
func (c *Collector) Listings() []Listing {
	out := make([]Listing, len(c.listings))
	copy(out, c.listings)
	return out
}
