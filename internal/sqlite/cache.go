package sqlite

import (
	"github.com/quillmud/worldstore/pkg/types"
)

// cache is the write-through identity map. Instances are keyed by their
// base type and primary-key tuple, so the same stored row always comes
// back as the same pointer regardless of which subtype asked. A second
// index covers unique fields, and a reverse index records which cached
// fields point at which identities so deletes can repair them.
type cache struct {
	reg     *types.Registry
	forward map[string]*types.Instance
	unique  map[string]*types.Instance
	owned   map[string][]string
	// refs maps a referent's identity to the cached fields holding it,
	// keyed source-identity + field.
	refs map[string]map[string]refEdge
}

type refEdge struct {
	source string
	field  string
}

func newCache(reg *types.Registry) *cache {
	return &cache{
		reg:     reg,
		forward: make(map[string]*types.Instance),
		unique:  make(map[string]*types.Instance),
		owned:   make(map[string][]string),
		refs:    make(map[string]map[string]refEdge),
	}
}

func (c *cache) identity(inst *types.Instance) (string, *types.Descriptor) {
	desc, err := c.reg.Lookup(inst.TypeName())
	if err != nil {
		return "", nil
	}
	return desc.BaseDescriptor().Name + "|" + inst.Key().String(), desc
}

// put installs or refreshes an instance. Unique-index entries owned by
// this identity that no longer match its current values are purged, so
// an updated unique field cannot serve stale lookups.
func (c *cache) put(inst *types.Instance) {
	id, desc := c.identity(inst)
	if desc == nil || inst.Key().IsZero() {
		return
	}
	c.forward[id] = inst

	for _, ukey := range c.owned[id] {
		delete(c.unique, ukey)
	}
	ukeys := c.owned[id][:0]
	for _, name := range desc.UniqueFields() {
		v := inst.Get(name)
		if v == nil {
			continue
		}
		ukey := desc.Name + "|" + name + "|" + types.FormatValue(v)
		c.unique[ukey] = inst
		ukeys = append(ukeys, ukey)
	}
	c.owned[id] = ukeys

	for _, f := range desc.AllFields() {
		if f.Kind != types.KindRef {
			continue
		}
		target, ok := inst.Get(f.Name).(*types.Instance)
		if !ok || target == nil {
			continue
		}
		tid, tdesc := c.identity(target)
		if tdesc == nil {
			continue
		}
		edges := c.refs[tid]
		if edges == nil {
			edges = make(map[string]refEdge)
			c.refs[tid] = edges
		}
		edges[id+"|"+f.Name] = refEdge{source: id, field: f.Name}
	}
}

func (c *cache) byKey(base, key string) *types.Instance {
	return c.forward[base+"|"+key]
}

func (c *cache) byUnique(typeName, field string, value any) *types.Instance {
	return c.unique[typeName+"|"+field+"|"+types.FormatValue(value)]
}

// evict removes a deleted identity and invokes refresh for every cached
// field that referenced it, so dangling pointers get re-resolved against
// storage.
func (c *cache) evict(inst *types.Instance, refresh func(*types.Instance, string)) {
	id, desc := c.identity(inst)
	if desc == nil {
		return
	}
	delete(c.forward, id)
	for _, ukey := range c.owned[id] {
		delete(c.unique, ukey)
	}
	delete(c.owned, id)

	edges := c.refs[id]
	delete(c.refs, id)
	for _, edge := range edges {
		source, ok := c.forward[edge.source]
		if !ok {
			continue
		}
		refresh(source, edge.field)
	}
}

func (c *cache) clear() {
	c.forward = make(map[string]*types.Instance)
	c.unique = make(map[string]*types.Instance)
	c.owned = make(map[string][]string)
	c.refs = make(map[string]map[string]refEdge)
}
