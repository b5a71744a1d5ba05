package execute

// invoker.go — the seam between the execution pipeline and the WASM
// host: the pipeline never touches wasmer-go directly, it only calls
// Invoker.Invoke with an Environment wasmhost.go built for it. This
// mirrors core/execution_management.go's dependency on a VM interface
// rather than a concrete virtual_machine.go type (ExecutionManager
// takes a VM, not a *HeavyVM).

import (
	"encoding/json"

	"grug/types"
	"grug/wasmhost"
)

// ContractInvoker calls one guest entry point for one contract. The
// execute/ package's Pipeline is the only caller; production wiring
// loads compiled bytecode through a wasmhost.InstanceCache.
type ContractInvoker interface {
	Invoke(entryPoint string, contract types.Address, codeHash types.Hash256, env *wasmhost.Environment, ctx, msg json.RawMessage) (*types.Response, error)
}
