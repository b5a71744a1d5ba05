package wasmhost

// instance_cache.go — an LRU cache of uploaded contract bytecode keyed
// by code hash, avoiding a storage round-trip on every call. Grounded
// on core/vm_sandbox_management.go's global map-plus-mutex sandbox
// registry (kept HOW: a single process-wide cache guarding concurrent
// access; replaced WHAT: sandboxes keyed by arbitrary session id become
// compiled bytecode keyed by content-addressed code hash, evicted by
// size rather than explicit teardown). Lib: github.com/hashicorp/golang-lru/v2.

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/wasmerio/wasmer-go/wasmer"

	"grug/apperror"
	"grug/types"
)

// InstanceCache holds each code hash's uploaded wasm bytecode (not a
// compiled wasmer.Module; Instantiate compiles it on every call). The
// engine and an explicit concurrency guard are shared across every
// cached entry.
type InstanceCache struct {
	mu     sync.Mutex
	engine *wasmer.Engine
	cache  *lru.Cache[types.Hash256, []byte]
}

// NewInstanceCache builds a cache holding up to capacity bytecode
// blobs (spec §9's vm.instance_cache_cap config knob).
func NewInstanceCache(capacity int) (*InstanceCache, error) {
	c, err := lru.New[types.Hash256, []byte](capacity)
	if err != nil {
		return nil, apperror.Fatal("construct instance cache", err)
	}
	return &InstanceCache{engine: wasmer.NewEngine(), cache: c}, nil
}

// Get returns the module bytes for codeHash, populating the cache from
// loadCode on a miss.
func (c *InstanceCache) Get(codeHash types.Hash256, loadCode func() ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if code, ok := c.cache.Get(codeHash); ok {
		return code, nil
	}
	code, err := loadCode()
	if err != nil {
		return nil, err
	}
	c.cache.Add(codeHash, code)
	return code, nil
}

// Instantiate builds a fresh Instance for codeHash against env, reusing
// cached bytecode when present.
func (c *InstanceCache) Instantiate(codeHash types.Hash256, loadCode func() ([]byte, error), env *Environment) (*Instance, error) {
	code, err := c.Get(codeHash, loadCode)
	if err != nil {
		return nil, err
	}
	return NewInstance(c.engine, code, env)
}

// Purge drops every cached entry, used when a chain-wide code
// migration invalidates previously compiled bytecode.
func (c *InstanceCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}
