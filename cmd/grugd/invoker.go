package main

// invoker.go — the production execute.ContractInvoker: loads a
// contract's immutable bytecode through execute.State.LoadCode,
// compiles and caches it in a wasmhost.InstanceCache, and runs one
// entry point. Lives in cmd/grugd rather than wasmhost/ because
// execute already imports wasmhost (for wasmhost.Querier/Environment);
// a type satisfying execute.ContractInvoker that also constructs
// wasmhost.Instances needs both packages, so it belongs at the
// composition root, the way cmd/synnergy/main.go wires concrete types
// into its root command rather than core/ doing it itself.

import (
	"encoding/json"
	"fmt"

	"grug/apperror"
	"grug/execute"
	"grug/types"
	"grug/wasmhost"
)

// wasmInvoker is the execute.ContractInvoker used by a running node,
// as opposed to the noop/stub invokers the package tests use in place
// of real compiled bytecode.
type wasmInvoker struct {
	state *execute.State
	cache *wasmhost.InstanceCache
}

func newWasmInvoker(state *execute.State, cacheCap int) (*wasmInvoker, error) {
	cache, err := wasmhost.NewInstanceCache(cacheCap)
	if err != nil {
		return nil, err
	}
	return &wasmInvoker{state: state, cache: cache}, nil
}

func (w *wasmInvoker) Invoke(entryPoint string, contract types.Address, codeHash types.Hash256, env *wasmhost.Environment, ctx, msg json.RawMessage) (*types.Response, error) {
	loadCode := func() ([]byte, error) {
		rec, ok, err := w.state.LoadCode(env.Storage, codeHash)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperror.NotFound(fmt.Sprintf("code %x not found for contract %x", codeHash, contract))
		}
		return rec.WasmByte, nil
	}

	instance, err := w.cache.Instantiate(codeHash, loadCode, env)
	if err != nil {
		return nil, err
	}
	return instance.Invoke(entryPoint, ctx, msg)
}
