package testutil

import (
	"github.com/calvinalkan/slotarena/pkg/stored/model"
)

// Value ranges the generator draws from. SeedBuilder encodes against the
// same constants.
const (
	maxElems  = 5   // slice lengths are 0..maxElems-1
	maxValue  = 100 // payload ints are 0..maxValue-1
	deltaSpan = 20  // Add deltas are -deltaSpan/2..deltaSpan/2-1
	kindCount = 3   // Store picks KindValue, KindView or KindSlice
)

// OpGenConfig configures the operation generator.
//
// Rates are percentages (0-100). Ops whose rates do not add up to 100 leave
// the remainder to Get.
type OpGenConfig struct {
	StoreRate          int
	NewScopeRate       int
	DisposeScopeRate   int
	SetRate            int
	AddRate            int
	DisposeRate        int
	DowncastRate       int
	RefreshRate        int
	NestedRate         int
	DisposeRuntimeRate int

	// InvalidHandleRate is the percentage of handle references that point
	// past the end of the handle table.
	InvalidHandleRate int
}

// DefaultOpGenConfig returns a balanced configuration.
func DefaultOpGenConfig() OpGenConfig {
	return OpGenConfig{
		StoreRate:          22,
		NewScopeRate:       8,
		DisposeScopeRate:   5,
		SetRate:            10,
		AddRate:            12,
		DisposeRate:        6,
		DowncastRate:       10,
		RefreshRate:        4,
		NestedRate:         8,
		DisposeRuntimeRate: 1,
		InvalidHandleRate:  5,
	}
}

// opKind indexes OpGenConfig.rates.
type opKind int

const (
	opStore opKind = iota
	opNewScope
	opDisposeScope
	opSet
	opAdd
	opDispose
	opDowncast
	opRefresh
	opNested
	opDisposeRuntime
	opGet // fallthrough
)

// rates lists the rates in the order NextOp tests them.
func (c *OpGenConfig) rates() []int {
	return []int{
		c.StoreRate,
		c.NewScopeRate,
		c.DisposeScopeRate,
		c.SetRate,
		c.AddRate,
		c.DisposeRate,
		c.DowncastRate,
		c.RefreshRate,
		c.NestedRate,
		c.DisposeRuntimeRate,
	}
}

// OpGenerator generates deterministic operations from a byte stream.
//
// It reads the model only for table sizes (handles and scopes), so the same
// bytes produce the same ops no matter which payloads are stored.
type OpGenerator struct {
	stream *ByteStream
	config OpGenConfig
	model  *model.Model
}

// NewOpGenerator creates a new operation generator.
func NewOpGenerator(fuzzBytes []byte, m *model.Model, cfg *OpGenConfig) *OpGenerator {
	return &OpGenerator{
		stream: NewByteStream(fuzzBytes),
		config: *cfg,
		model:  m,
	}
}

// HasMore reports whether more operations can be generated.
func (g *OpGenerator) HasMore() bool {
	return g.stream.HasMore()
}

// NextOp generates the next operation.
func (g *OpGenerator) NextOp() Op {
	switch g.chooseKind() {
	case opStore:
		return OpStore{Scope: g.pickScope(), Kind: g.pickKind(), Elems: g.values()}
	case opNewScope:
		return OpNewScope{Parent: g.pickScope()}
	case opDisposeScope:
		return OpDisposeScope{Scope: g.pickScope()}
	case opSet:
		return OpSet{Handle: g.pickHandle(), Elems: g.values()}
	case opAdd:
		return OpAdd{Handle: g.pickHandle(), Delta: g.stream.NextInt(deltaSpan) - deltaSpan/2}
	case opDispose:
		return OpDispose{Handle: g.pickHandle()}
	case opDowncast:
		return OpDowncast{Handle: g.pickHandle()}
	case opRefresh:
		return OpRefresh{Handle: g.pickHandle()}
	case opNested:
		return OpNested{Outer: g.pickHandle(), Inner: g.pickHandle()}
	case opDisposeRuntime:
		return OpDisposeRuntime{}
	default:
		return OpGet{Handle: g.pickHandle()}
	}
}

func (g *OpGenerator) chooseKind() opKind {
	choice := int(g.stream.NextByte()) % 100

	cumulative := 0

	for i, rate := range g.config.rates() {
		cumulative += rate
		if choice < cumulative {
			return opKind(i)
		}
	}

	return opGet
}

func (g *OpGenerator) pickKind() model.Kind {
	return model.Kind(1 + g.stream.NextInt(kindCount))
}

func (g *OpGenerator) values() []int {
	return g.stream.NextInts(maxElems, maxValue)
}

func (g *OpGenerator) pickScope() int {
	return g.stream.NextInt(len(g.model.Scopes))
}

// pickHandle returns an index into the handle table, or one past its end
// when an invalid reference is due. It always reads two bytes.
func (g *OpGenerator) pickHandle() int {
	invalid := int(g.stream.NextByte())%100 < g.config.InvalidHandleRate
	pick := int(g.stream.NextByte())
	n := len(g.model.Handles)

	if invalid || n == 0 {
		return n + pick%2
	}

	return pick % n
}
