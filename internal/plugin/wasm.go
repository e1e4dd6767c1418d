package plugin

import (
	"encoding/binary"
	"errors"

	"github.com/wasmerio/wasmer-go/wasmer"
)

var (
	errMissingExport  = errors.New("module must export memory, alloc, and transform")
	errResultOversize = errors.New("result exceeds the configured size cap")
)

// WasmPlugin runs a sandboxed WebAssembly module exposing
// memory/alloc(size)->ptr/transform(ptr,len)->ptr per spec.md §4.10.
type WasmPlugin struct {
	name     string
	instance *wasmer.Instance
	memory   *wasmer.Memory
	alloc    *wasmer.Function
	transform *wasmer.Function
	cfg      Config
}

// NewWasmPlugin instantiates wasmBytes with the singlepass compiler, the
// fastest-compiling backend wasmer-go offers. wasmer-go v1.0.4 exposes no
// fuel-metering knob (unlike wasmtime's Store.SetFuel), so cfg.FuelBudget
// is not enforced. Apply has no wall-clock timeout either, and neither do
// its callers: a module whose transform never returns blocks the caller.
func NewWasmPlugin(name string, wasmBytes []byte, cfg Config) (*WasmPlugin, error) {
	engineCfg := wasmer.NewConfig().UseSinglepassCompiler()
	engine := wasmer.NewEngineWithConfig(engineCfg)
	store := wasmer.NewStore(engine)

	module, err := wasmer.NewModule(store, wasmBytes)
	if err != nil {
		return nil, &Error{Kind: LoadFailed, Plugin: name, Cause: err}
	}

	importObject := wasmer.NewImportObject()
	instance, err := wasmer.NewInstance(module, importObject)
	if err != nil {
		return nil, &Error{Kind: LoadFailed, Plugin: name, Cause: err}
	}

	memory, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, &Error{Kind: LoadFailed, Plugin: name, Cause: errMissingExport}
	}
	allocFn, err := instance.Exports.GetFunction("alloc")
	if err != nil {
		return nil, &Error{Kind: LoadFailed, Plugin: name, Cause: errMissingExport}
	}
	transformFn, err := instance.Exports.GetFunction("transform")
	if err != nil {
		return nil, &Error{Kind: LoadFailed, Plugin: name, Cause: errMissingExport}
	}

	return &WasmPlugin{
		name:      name,
		instance:  instance,
		memory:    memory,
		alloc:     allocFn,
		transform: transformFn,
		cfg:       cfg,
	}, nil
}

func (p *WasmPlugin) Name() string { return p.name }

// Apply writes text into the module's linear memory, invokes
// transform(ptr, len), and decodes the length-prefixed UTF-8 result.
func (p *WasmPlugin) Apply(text string) (string, error) {
	input := []byte(text)

	ptr, err := p.alloc.Call(len(input))
	if err != nil {
		return "", &Error{Kind: ExecutionFailed, Plugin: p.name, Cause: err}
	}
	inPtr, ok := ptr.(int32)
	if !ok {
		return "", &Error{Kind: ExecutionFailed, Plugin: p.name, Cause: errMissingExport}
	}

	mem := p.memory.Data()
	copy(mem[inPtr:], input)

	resultPtr, err := p.transform.Call(inPtr, int32(len(input)))
	if err != nil {
		return "", &Error{Kind: ExecutionFailed, Plugin: p.name, Cause: err}
	}
	outPtr, ok := resultPtr.(int32)
	if !ok {
		return "", &Error{Kind: InvalidReturn, Plugin: p.name, Cause: errMissingExport}
	}

	mem = p.memory.Data()
	if int(outPtr)+4 > len(mem) {
		return "", &Error{Kind: InvalidReturn, Plugin: p.name, Cause: errResultOversize}
	}
	length := int(binary.LittleEndian.Uint32(mem[outPtr : outPtr+4]))
	if length > p.cfg.MaxResultBytes || int(outPtr)+4+length > len(mem) {
		return "", &Error{Kind: InvalidReturn, Plugin: p.name, Cause: errResultOversize}
	}

	out := make([]byte, length)
	copy(out, mem[outPtr+4:int(outPtr)+4+length])
	return string(out), nil
}
