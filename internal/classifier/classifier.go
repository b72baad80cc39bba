package classifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mevscope/internal/metadata"
	"mevscope/internal/model"
)

// Selector is the leading four bytes of call input identifying the method.
type Selector [4]byte

// SelectorOf extracts the selector from raw input, if present.
func SelectorOf(input []byte) (Selector, bool) {
	if len(input) < 4 {
		return Selector{}, false
	}
	var sel Selector
	copy(sel[:], input[:4])
	return sel, true
}

// Context provides shared dependencies for classification rules.
type Context struct {
	Context  context.Context
	Metadata *metadata.Cache
	Logger   *zap.Logger
}

func (c Context) ctx() context.Context {
	if c.Context == nil {
		return context.Background()
	}
	return c.Context
}

// Classifier decodes calls of one protocol variant into actions.
type Classifier interface {
	// Protocol names the variant, matching metadata protocol identifiers.
	Protocol() string
	// Selectors lists the call selectors this classifier handles.
	Selectors() []Selector
	// Classify decodes one raw frame. A frame the classifier recognizes but
	// cannot attribute (e.g. unknown pool) yields an Unknown action with no
	// error; a decode failure yields an error for the caller to flag.
	Classify(ctx Context, frame model.RawCallTrace) (model.Action, error)
}

// Registry maps (protocol, selector) to classification rules. It is a pure
// function of the call target and selector; registration happens up front
// and the registry is read-only afterward.
type Registry struct {
	bySelector map[Selector][]Classifier
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{bySelector: make(map[Selector][]Classifier)}
}

// Register adds a classifier for all of its selectors.
func (r *Registry) Register(c Classifier) {
	for _, sel := range c.Selectors() {
		r.bySelector[sel] = append(r.bySelector[sel], c)
	}
}

// Lookup resolves the classifier for a frame. When several protocols share a
// selector, the target address's metadata entry disambiguates; an address
// with no metadata matches only if a single candidate remains.
func (r *Registry) Lookup(ctx Context, frame model.RawCallTrace) (Classifier, bool) {
	sel, ok := SelectorOf(frame.Input)
	if !ok {
		return nil, false
	}
	candidates := r.bySelector[sel]
	if len(candidates) == 0 {
		return nil, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	if ctx.Metadata != nil {
		entry, known, err := ctx.Metadata.Get(ctx.ctx(), frame.To)
		if err != nil && ctx.Logger != nil {
			ctx.Logger.Warn("metadata lookup failed", zap.String("address", frame.To.Hex()), zap.Error(err))
		}
		if known {
			for _, candidate := range candidates {
				if candidate.Protocol() == entry.Protocol {
					return candidate, true
				}
			}
		}
	}
	return nil, false
}

// Classify decodes one frame into an action. An unrecognized selector yields
// Unknown with no error; a recognized frame that fails to decode yields
// Unknown plus the decode error so callers can flag the node.
func (r *Registry) Classify(ctx Context, frame model.RawCallTrace) (model.Action, error) {
	classifier, ok := r.Lookup(ctx, frame)
	if !ok {
		return model.UnknownFor(frame), nil
	}
	action, err := classifier.Classify(ctx, frame)
	if err != nil {
		return model.UnknownFor(frame), fmt.Errorf("%s: %w", classifier.Protocol(), err)
	}
	return action, nil
}

// DefaultRegistry wires up every built-in protocol classifier.
func DefaultRegistry() (*Registry, error) {
	registry := NewRegistry()

	v2, err := NewV2PairClassifier()
	if err != nil {
		return nil, fmt.Errorf("v2 pair classifier: %w", err)
	}
	registry.Register(v2)

	v3, err := NewV3PoolClassifier()
	if err != nil {
		return nil, fmt.Errorf("v3 pool classifier: %w", err)
	}
	registry.Register(v3)

	erc20, err := NewERC20Classifier()
	if err != nil {
		return nil, fmt.Errorf("erc20 classifier: %w", err)
	}
	registry.Register(erc20)

	lending, err := NewLendingClassifier()
	if err != nil {
		return nil, fmt.Errorf("lending classifier: %w", err)
	}
	registry.Register(lending)

	router, err := NewRouterClassifier()
	if err != nil {
		return nil, fmt.Errorf("router classifier: %w", err)
	}
	registry.Register(router)

	return registry, nil
}
