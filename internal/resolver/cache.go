// Package resolver maps inbound webhook events to accounts through an
// ordered cascade of extraction strategies backed by resolution caches.
package resolver

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
)

// DefaultCacheSize bounds each resolution table. External-ID-to-phone
// bindings are immutable, so eviction only costs a redundant API call.
const DefaultCacheSize = 4096

// Cache holds the three resolution tables consulted before any external
// telephony API call. Implementations must be safe for concurrent use;
// lost updates are acceptable, torn reads are not.
type Cache interface {
	// CallPhone maps call or chat ids to phone numbers.
	CallPhone(id string) (string, bool)
	SetCallPhone(id, phone string)

	// PhoneByNumberID maps phone-number ids to phone numbers.
	PhoneByNumberID(id string) (string, bool)
	SetPhoneByNumberID(id, phone string)

	// NumberIDByPhone is the reverse binding, phone number to phone-number id.
	NumberIDByPhone(phone string) (string, bool)
	SetNumberIDByPhone(phone, id string)
}

// LRUCache implements Cache with three independent size-bounded LRU tables.
type LRUCache struct {
	callPhone *lru.Cache[string, string]
	phoneByID *lru.Cache[string, string]
	idByPhone *lru.Cache[string, string]
}

// NewLRUCache creates a cache with the given per-table size.
func NewLRUCache(size int) (*LRUCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	callPhone, err := lru.New[string, string](size)
	if err != nil {
		return nil, eris.Wrap(err, "resolver: create call cache")
	}
	phoneByID, err := lru.New[string, string](size)
	if err != nil {
		return nil, eris.Wrap(err, "resolver: create phone-id cache")
	}
	idByPhone, err := lru.New[string, string](size)
	if err != nil {
		return nil, eris.Wrap(err, "resolver: create phone cache")
	}
	return &LRUCache{callPhone: callPhone, phoneByID: phoneByID, idByPhone: idByPhone}, nil
}

func (c *LRUCache) CallPhone(id string) (string, bool) { return c.callPhone.Get(id) }

func (c *LRUCache) SetCallPhone(id, phone string) { c.callPhone.Add(id, phone) }

func (c *LRUCache) PhoneByNumberID(id string) (string, bool) { return c.phoneByID.Get(id) }

func (c *LRUCache) SetPhoneByNumberID(id, phone string) { c.phoneByID.Add(id, phone) }

func (c *LRUCache) NumberIDByPhone(phone string) (string, bool) { return c.idByPhone.Get(phone) }

func (c *LRUCache) SetNumberIDByPhone(phone, id string) { c.idByPhone.Add(phone, id) }
