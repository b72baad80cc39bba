package classifier

import (
	"mevscope/internal/metadata"
	"mevscope/internal/model"
)

// RouterClassifier tags aggregator and router entrypoints. The router frame
// itself carries no action of its own; the swaps live in its child frames,
// which classify independently. Tagging the frame keeps the routing hop
// visible to inspectors walking the tree.
type RouterClassifier struct {
	selectors []Selector
}

// NewRouterClassifier builds the classifier.
func NewRouterClassifier() (*RouterClassifier, error) {
	routerABI, err := RouterABI()
	if err != nil {
		return nil, err
	}
	selectors, err := selectorsFor(routerABI,
		"swapExactTokensForTokens", "swapTokensForExactTokens", "multicall", "execute")
	if err != nil {
		return nil, err
	}
	return &RouterClassifier{selectors: selectors}, nil
}

func (c *RouterClassifier) Protocol() string { return metadata.ProtocolRouter }

func (c *RouterClassifier) Selectors() []Selector { return c.selectors }

// Classify passes the frame through as Unknown tagged with the router
// protocol, raw input preserved.
func (c *RouterClassifier) Classify(_ Context, frame model.RawCallTrace) (model.Action, error) {
	action := model.UnknownFor(frame)
	action.Protocol = c.Protocol()
	return action, nil
}
