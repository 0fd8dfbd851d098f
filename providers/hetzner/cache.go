package hetzner

import "github.com/octodns/octodns-hetzner/providers/hetzner/backend"

// zoneCache holds what the provider learned about remote zones. Zone
// metadata and name to id mappings are filled on first lookup or on zone
// creation and kept for the provider's lifetime; record listings are filled
// on first read and evicted after every successful apply of that zone.
type zoneCache struct {
	records  map[string][]backend.Record // zone name -> records
	metadata map[string]backend.Zone     // zone id -> zone
	ids      map[string]string           // zone name -> zone id
}

func newZoneCache() *zoneCache {
	return &zoneCache{
		records:  make(map[string][]backend.Record),
		metadata: make(map[string]backend.Zone),
		ids:      make(map[string]string),
	}
}

func (c *zoneCache) zone(name string) (backend.Zone, bool) {
	id, ok := c.ids[name]
	if !ok {
		return backend.Zone{}, false
	}
	z, ok := c.metadata[id]
	return z, ok
}

func (c *zoneCache) storeZone(name string, z backend.Zone) {
	c.ids[name] = z.ID
	c.metadata[z.ID] = z
}

func (c *zoneCache) zoneRecords(name string) ([]backend.Record, bool) {
	records, ok := c.records[name]
	return records, ok
}

func (c *zoneCache) storeRecords(name string, records []backend.Record) {
	c.records[name] = records
}

func (c *zoneCache) evictRecords(name string) {
	delete(c.records, name)
}
