package wasmhost

// imports.go — the "env"-namespaced host import table (spec §4.3):
// db_read, db_scan, db_next, db_write, db_remove, query_chain, the
// crypto verify/recover family, and debug. Grounded on
// core/virtual_machine.go's registerHost (kept HOW: wasmer.NewFunction
// callbacks reading/writing guest memory through Region descriptors;
// replaced WHAT: host_read/host_write/host_log's ad hoc single-key
// ledger access is gone, replaced by the full storage/query/crypto
// import surface spec §4.3 names).

import (
	"encoding/json"

	"github.com/wasmerio/wasmer-go/wasmer"

	"grug/apperror"
	"grug/gas"
	"grug/store"
)

// memAccess adapts a memorySlot to Region-addressed read/write,
// mirroring registerHost's read/write closures in core/virtual_machine.go.
// It dereferences the slot on every call since the guest's memory
// export is only known once instantiation finishes, after the import
// object (and therefore these closures) is already built.
type memAccess struct {
	slot *memorySlot
}

func (m memAccess) read(r Region) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	data := m.slot.mem.Data()
	if uint64(r.Offset)+uint64(r.Length) > uint64(len(data)) {
		return nil, apperror.Host("memory region out of bounds", nil)
	}
	out := make([]byte, r.Length)
	copy(out, data[r.Offset:r.Offset+r.Length])
	return out, nil
}

func (m memAccess) write(offset uint32, capacity uint32, payload []byte) (uint32, error) {
	data := m.slot.mem.Data()
	if uint64(offset)+uint64(capacity) > uint64(len(data)) {
		return 0, apperror.Host("memory region out of bounds", nil)
	}
	if uint64(len(payload)) > uint64(capacity) {
		return 0, apperror.Host("payload exceeds destination capacity", nil)
	}
	copy(data[offset:], payload)
	return uint32(len(payload)), nil
}

// handleTable maps the int32 handles crossing the wasm ABI to the
// string-keyed iterator table Environment keeps (env.go uses uuid
// strings for host-side bookkeeping; the guest only ever sees a
// small integer).
type handleTable struct {
	next    int32
	toID    map[int32]string
}

func newHandleTable() *handleTable {
	return &handleTable{toID: map[int32]string{}}
}

func (h *handleTable) register(id string) int32 {
	h.next++
	h.toID[h.next] = id
	return h.next
}

func (h *handleTable) resolve(handle int32) (string, bool) {
	id, ok := h.toID[handle]
	return id, ok
}

func (h *handleTable) drop(handle int32) {
	delete(h.toID, handle)
}

func i32(v int32) wasmer.Value  { return wasmer.NewI32(v) }
func argI32(a []wasmer.Value, i int) int32 { return a[i].I32() }

// BuildImportObject constructs the "env"-namespaced import object for
// one contract call, wired to env and store through slot.
func BuildImportObject(wstore *wasmer.Store, slot *memorySlot, env *Environment) *wasmer.ImportObject {
	ma := memAccess{slot: slot}
	handles := newHandleTable()

	fn := func(params, results []wasmer.ValueKind, impl func([]wasmer.Value) ([]wasmer.Value, error)) *wasmer.Function {
		return wasmer.NewFunction(
			wstore,
			wasmer.NewFunctionType(wasmer.NewValueTypes(params...), wasmer.NewValueTypes(results...)),
			impl,
		)
	}

	readRegion := func(a []wasmer.Value, idx int) ([]byte, error) {
		r, err := regionAt(ma, argI32(a, idx))
		if err != nil {
			return nil, err
		}
		return ma.read(r)
	}

	dbRead := fn([]wasmer.ValueKind{wasmer.I32, wasmer.I32}, []wasmer.ValueKind{wasmer.I32}, func(a []wasmer.Value) ([]wasmer.Value, error) {
		keyReg, err := regionAt(ma, argI32(a, 0))
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		key, err := ma.read(keyReg)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		val, ok := env.Storage.Read(key)
		readLen := uint64(0) // len=0 on a miss
		if ok {
			readLen = uint64(len(val))
		}
		if err := env.Gas.ConsumeOp(gas.OpDBRead, readLen); err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		if !ok {
			return []wasmer.Value{i32(0)}, nil
		}
		outReg, err := regionAt(ma, argI32(a, 1))
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		n, err := ma.write(outReg.Offset, outReg.Capacity, val)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		return []wasmer.Value{i32(int32(n))}, nil
	})

	dbWrite := fn([]wasmer.ValueKind{wasmer.I32, wasmer.I32}, []wasmer.ValueKind{wasmer.I32}, func(a []wasmer.Value) ([]wasmer.Value, error) {
		if err := env.RequireMutable(); err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		key, err := readRegion(a, 0)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		val, err := readRegion(a, 1)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		if err := env.Gas.ConsumeOp(gas.OpDBWrite, uint64(len(key)+len(val))); err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		env.Storage.Write(key, val)
		return []wasmer.Value{i32(0)}, nil
	})

	dbRemove := fn([]wasmer.ValueKind{wasmer.I32}, []wasmer.ValueKind{wasmer.I32}, func(a []wasmer.Value) ([]wasmer.Value, error) {
		if err := env.RequireMutable(); err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		key, err := readRegion(a, 0)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		if err := env.Gas.ConsumeOp(gas.OpDBRemove, uint64(len(key))); err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		env.Storage.Remove(key)
		return []wasmer.Value{i32(0)}, nil
	})

	dbScan := fn([]wasmer.ValueKind{wasmer.I32, wasmer.I32, wasmer.I32}, []wasmer.ValueKind{wasmer.I32}, func(a []wasmer.Value) ([]wasmer.Value, error) {
		var min, max []byte
		var err error
		if argI32(a, 0) != 0 {
			if min, err = readRegion(a, 0); err != nil {
				return []wasmer.Value{i32(-1)}, nil
			}
		}
		if argI32(a, 1) != 0 {
			if max, err = readRegion(a, 1); err != nil {
				return []wasmer.Value{i32(-1)}, nil
			}
		}
		order := store.Ascending
		if argI32(a, 2) != 0 {
			order = store.Descending
		}
		if err := env.Gas.ConsumeOp(gas.OpDBScan, 0); err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		it := env.Storage.Scan(min, max, order)
		id := env.NewIterator(it)
		return []wasmer.Value{i32(handles.register(id))}, nil
	})

	dbNext := fn([]wasmer.ValueKind{wasmer.I32, wasmer.I32, wasmer.I32}, []wasmer.ValueKind{wasmer.I32}, func(a []wasmer.Value) ([]wasmer.Value, error) {
		id, ok := handles.resolve(argI32(a, 0))
		if !ok {
			return []wasmer.Value{i32(-1)}, nil
		}
		st, ok := env.Iterator(id)
		if !ok {
			return []wasmer.Value{i32(-1)}, nil
		}
		if err := env.Gas.ConsumeOp(gas.OpDBNext, 0); err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		rec, hasMore := st.Iter.Next()
		if !hasMore {
			return []wasmer.Value{i32(0)}, nil
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		keyReg, err := regionAt(ma, argI32(a, 1))
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		n, err := ma.write(keyReg.Offset, keyReg.Capacity, payload)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		return []wasmer.Value{i32(int32(n))}, nil
	})

	queryChain := fn([]wasmer.ValueKind{wasmer.I32, wasmer.I32}, []wasmer.ValueKind{wasmer.I32}, func(a []wasmer.Value) ([]wasmer.Value, error) {
		if err := env.EnterQuery(); err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		defer env.ExitQuery()
		req, err := readRegion(a, 0)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		if env.Querier == nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		resp, err := env.Querier.Query(req, env.QueryDepth)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		outReg, err := regionAt(ma, argI32(a, 1))
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		n, err := ma.write(outReg.Offset, outReg.Capacity, resp)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		return []wasmer.Value{i32(int32(n))}, nil
	})

	cryptoVerify := fn([]wasmer.ValueKind{wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32}, []wasmer.ValueKind{wasmer.I32}, func(a []wasmer.Value) ([]wasmer.Value, error) {
		algReg, err := readRegion(a, 0)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		msgHash, err := readRegion(a, 1)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		sig, err := readRegion(a, 2)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		pubkey, err := readRegion(a, 3)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		if err := env.Gas.ConsumeOp(gas.OpCryptoVerify, 0); err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		result, err := Verify(Algorithm(algReg), msgHash, sig, pubkey)
		if err != nil {
			return []wasmer.Value{i32(int32(VerifyFail))}, nil
		}
		return []wasmer.Value{i32(int32(result))}, nil
	})

	cryptoRecover := fn([]wasmer.ValueKind{wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32}, []wasmer.ValueKind{wasmer.I32}, func(a []wasmer.Value) ([]wasmer.Value, error) {
		msgHash, err := readRegion(a, 0)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		sig, err := readRegion(a, 1)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		recID := byte(argI32(a, 2))
		if err := env.Gas.ConsumeOp(gas.OpCryptoRecover, 0); err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		pub, err := Recover(msgHash, sig, recID)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		outReg, err := regionAt(ma, argI32(a, 3))
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		n, err := ma.write(outReg.Offset, outReg.Capacity, pub)
		if err != nil {
			return []wasmer.Value{i32(-1)}, nil
		}
		return []wasmer.Value{i32(int32(n))}, nil
	})

	debugLog := fn([]wasmer.ValueKind{wasmer.I32}, []wasmer.ValueKind{}, func(a []wasmer.Value) ([]wasmer.Value, error) {
		msg, err := readRegion(a, 0)
		if err == nil {
			_ = env.Gas.ConsumeOp(gas.OpDebugLog, uint64(len(msg)))
		}
		return []wasmer.Value{}, nil
	})

	imports := wasmer.NewImportObject()
	imports.Register("env", map[string]wasmer.IntoExtern{
		"db_read":        dbRead,
		"db_scan":        dbScan,
		"db_next":        dbNext,
		"db_write":       dbWrite,
		"db_remove":      dbRemove,
		"query_chain":    queryChain,
		"crypto_verify":  cryptoVerify,
		"crypto_recover": cryptoRecover,
		"debug":          debugLog,
	})
	return imports
}

func regionAt(ma memAccess, ptr int32) (Region, error) {
	raw, err := ma.read(Region{Offset: uint32(ptr), Capacity: 12, Length: 12})
	if err != nil {
		return Region{}, err
	}
	return DecodeRegion(raw)
}

