package wasmhost

// instance.go — wasmer-go instance construction (spec §4.3): compiling
// a code blob under the 32 MiB / 512-page memory limit, wiring the
// "env" import object, and exposing an Invoke surface the execution
// pipeline calls into. Grounded on core/virtual_machine.go's
// HeavyVM.Execute (kept HOW: wasmer.NewStore/NewModule/NewInstance,
// reading the "memory" export and calling an entry point; replaced
// WHAT: one fixed "_start" opcode-interpreter entry point becomes a
// named-entry-point call with a JSON request/response envelope).

import (
	"encoding/json"

	"github.com/wasmerio/wasmer-go/wasmer"

	"grug/apperror"
	"grug/gas"
	"grug/types"
)

// MaxMemoryPages bounds a contract's linear memory to 512 pages of 64
// KiB each, i.e. 32 MiB (spec §4.3 "memory page limit").
const MaxMemoryPages = 512

// Instance wraps one compiled-and-instantiated contract for a single
// call. A fresh Instance is built, and its module compiled, per call;
// only the contract's bytecode is reused across calls (instance_cache.go).
type Instance struct {
	wasmInstance *wasmer.Instance
	mem          *wasmer.Memory
	env          *Environment
}

// memorySlot lets the import object capture a memory reference before
// the instance (and therefore its "memory" export) exists: wasmer-go
// instantiation needs the import object up front, but the guest's own
// linear memory is only known once the instance is built. Host
// functions close over the slot and dereference it lazily on each
// call.
type memorySlot struct {
	mem *wasmer.Memory
}

// NewInstance compiles and instantiates code against engine, rejecting
// modules whose declared minimum memory exceeds MaxMemoryPages, and
// wires env's Storage/Querier/Gas into the "env" import namespace.
func NewInstance(engine *wasmer.Engine, code []byte, env *Environment) (*Instance, error) {
	wstore := wasmer.NewStore(engine)
	mod, err := wasmer.NewModule(wstore, code)
	if err != nil {
		return nil, apperror.Guest("", "compile", err)
	}

	slot := &memorySlot{}
	imports := BuildImportObject(wstore, slot, env)

	inst, err := wasmer.NewInstance(mod, imports)
	if err != nil {
		return nil, apperror.Guest("", "instantiate", err)
	}
	mem, err := inst.Exports.GetMemory("memory")
	if err != nil {
		return nil, apperror.Host("wasm memory export missing", err)
	}
	if mem.Size() > MaxMemoryPages {
		return nil, apperror.Host("instantiated memory exceeds the 512-page limit", nil)
	}
	slot.mem = mem

	return &Instance{wasmInstance: inst, mem: mem, env: env}, nil
}

// CallRequest is the JSON envelope passed to a contract entry point.
type CallRequest struct {
	Ctx json.RawMessage `json:"ctx"`
	Msg json.RawMessage `json:"msg"`
}

// Invoke calls entryPoint (e.g. "instantiate", "execute", "query",
// "migrate", "reply", "cron_execute") passing ctx and msg, JSON-decoding the
// contract's Response from a NUL-terminated result region.
func (in *Instance) Invoke(entryPoint string, ctx json.RawMessage, msg json.RawMessage) (*types.Response, error) {
	defer in.env.CloseIterators()

	fnExport, err := in.wasmInstance.Exports.GetFunction(entryPoint)
	if err != nil {
		return nil, apperror.Guest("", entryPoint, err)
	}

	reqPayload, err := json.Marshal(CallRequest{Ctx: ctx, Msg: msg})
	if err != nil {
		return nil, apperror.Host("marshal call request", err)
	}
	if err := in.env.Gas.ConsumeOp(gas.OpWasmInstr, uint64(len(reqPayload))); err != nil {
		return nil, err
	}

	inOffset, err := growAndWrite(in.mem, reqPayload)
	if err != nil {
		return nil, err
	}

	outPtr, err := fnExport(int32(inOffset), int32(len(reqPayload)))
	if err != nil {
		return nil, apperror.Guest("", entryPoint, err)
	}
	outOffset, ok := outPtr.(int32)
	if !ok {
		return nil, apperror.Host("entry point returned a non-i32 result", nil)
	}

	raw, err := readNulTerminated(in.mem, uint32(outOffset))
	if err != nil {
		return nil, err
	}
	var resp types.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperror.Guest("", entryPoint, err)
	}
	return &resp, nil
}

// growAndWrite appends payload past the end of current linear memory,
// growing by whole pages as needed, and returns the write offset.
func growAndWrite(mem *wasmer.Memory, payload []byte) (uint32, error) {
	const pageSize = 65536
	offset := uint32(mem.DataSize())
	pagesNeeded := (uint32(len(payload)) + pageSize - 1) / pageSize
	if pagesNeeded > 0 {
		if !mem.Grow(wasmer.Pages(pagesNeeded)) {
			return 0, apperror.Host("failed to grow guest memory for host write", nil)
		}
	}
	copy(mem.Data()[offset:], payload)
	return offset, nil
}

func readNulTerminated(mem *wasmer.Memory, offset uint32) ([]byte, error) {
	data := mem.Data()
	if uint64(offset) >= uint64(len(data)) {
		return nil, apperror.Host("result offset out of bounds", nil)
	}
	end := offset
	for end < uint32(len(data)) && data[end] != 0 {
		end++
	}
	out := make([]byte, end-offset)
	copy(out, data[offset:end])
	return out, nil
}
