package tree

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mevscope/internal/classifier"
	"mevscope/internal/metadata"
	"mevscope/internal/model"
)

// ErrMalformedTrace marks a block whose trace data is structurally
// unparseable: duplicate or conflicting trace addresses, or a transaction
// with frames but no root. Such a block is abandoned wholesale and reported.
var ErrMalformedTrace = errors.New("structurally invalid trace")

// Builder turns raw block traces into classified forests.
type Builder struct {
	registry *classifier.Registry
	metadata *metadata.Cache
	logger   *zap.Logger
	workers  int
}

// NewBuilder wires a builder. workers bounds per-transaction parallelism
// within a block; values below 1 mean sequential.
func NewBuilder(registry *classifier.Registry, meta *metadata.Cache, workers int, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &Builder{registry: registry, metadata: meta, logger: logger, workers: workers}
}

// Build classifies every transaction of a block into a forest. Transactions
// are independent and classified concurrently; output order always equals
// inclusion order, so identical input yields an identical forest.
func (b *Builder) Build(ctx context.Context, block model.BlockTrace) (*model.ClassifiedForest, error) {
	forest := &model.ClassifiedForest{
		BlockNumber: block.Number,
		BlockHash:   block.Hash,
		Timestamp:   block.Timestamp,
		BaseFee:     block.BaseFee,
		GasUsed:     block.GasUsed,
		Builder:     block.Builder,
		Trees:       make([]model.ClassifiedTree, len(block.Txs)),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.workers)

	for i := range block.Txs {
		i := i
		group.Go(func() error {
			tree, err := b.BuildTree(groupCtx, block.Txs[i])
			if err != nil {
				return fmt.Errorf("block %d tx %s: %w", block.Number, block.Txs[i].Hash.Hex(), err)
			}
			forest.Trees[i] = tree
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return forest, nil
}

// BuildTree classifies one transaction's frames into a tree. The node arena
// keeps frames in execution order with the root at index 0; children are
// stored as index lists ordered by sibling position.
func (b *Builder) BuildTree(ctx context.Context, tx model.TxTrace) (model.ClassifiedTree, error) {
	tree := model.ClassifiedTree{
		TxHash:            tx.Hash,
		Signer:            tx.From,
		TxIndex:           tx.Index,
		GasUsed:           tx.GasUsed,
		EffectiveGasPrice: tx.EffectiveGasPrice,
		FromMempool:       tx.FromMempool,
	}

	if len(tx.Frames) == 0 {
		// The root node always exists, even for an empty trace.
		tree.Nodes = []model.ClassifiedNode{{
			TraceIndex: 0,
			Action:     model.Action{Kind: model.ActionUnknown},
			Malformed:  true,
			Diagnostic: "no trace frames",
		}}
		return tree, nil
	}

	byPath := make(map[string]int, len(tx.Frames))
	for i, frame := range tx.Frames {
		for _, step := range frame.TraceAddress {
			if step < 0 {
				return model.ClassifiedTree{}, fmt.Errorf("%w: negative trace address in frame %d", ErrMalformedTrace, i)
			}
		}
		key := pathKey(frame.TraceAddress)
		if _, dup := byPath[key]; dup {
			return model.ClassifiedTree{}, fmt.Errorf("%w: duplicate trace address %v", ErrMalformedTrace, frame.TraceAddress)
		}
		byPath[key] = i
	}

	rootIdx, ok := byPath[pathKey(nil)]
	if !ok {
		return model.ClassifiedTree{}, fmt.Errorf("%w: no root frame", ErrMalformedTrace)
	}

	// Arena positions: root first, then remaining frames in execution order.
	order := make([]int, 0, len(tx.Frames))
	order = append(order, rootIdx)
	for i := range tx.Frames {
		if i != rootIdx {
			order = append(order, i)
		}
	}
	arenaFor := make(map[int]int, len(order))
	for pos, frameIdx := range order {
		arenaFor[frameIdx] = pos
	}

	cctx := classifier.Context{Context: ctx, Metadata: b.metadata, Logger: b.logger}
	tree.Nodes = make([]model.ClassifiedNode, len(order))
	for pos, frameIdx := range order {
		frame := tx.Frames[frameIdx]
		node := model.ClassifiedNode{
			TraceIndex:   frameIdx,
			TraceAddress: frame.TraceAddress,
			Kind:         frame.Kind,
			From:         frame.From,
			To:           frame.To,
			Reverted:     frame.Reverted,
		}

		action, err := b.registry.Classify(cctx, frame)
		if err != nil {
			// Unparseable call data is recoverable per node: keep the
			// Unknown action and flag the node.
			node.Malformed = true
			node.Diagnostic = err.Error()
			b.logger.Debug("classify failed",
				zap.String("tx", tx.Hash.Hex()),
				zap.Ints("trace_address", frame.TraceAddress),
				zap.Error(err))
		}
		node.Action = action
		tree.Nodes[pos] = node
	}

	// Attach children. A frame whose direct parent is missing attaches to
	// its nearest present ancestor and is flagged rather than dropped.
	for pos, frameIdx := range order {
		if pos == 0 {
			continue
		}
		frame := tx.Frames[frameIdx]
		parentPos, exact := nearestAncestor(byPath, arenaFor, frame.TraceAddress)
		if !exact {
			tree.Nodes[pos].Malformed = true
			tree.Nodes[pos].Diagnostic = appendDiagnostic(tree.Nodes[pos].Diagnostic, "parent frame missing")
		}
		tree.Nodes[parentPos].Children = append(tree.Nodes[parentPos].Children, pos)
	}

	for pos := range tree.Nodes {
		children := tree.Nodes[pos].Children
		sort.Slice(children, func(a, b int) bool {
			return siblingOrder(tree.Nodes[children[a]].TraceAddress) < siblingOrder(tree.Nodes[children[b]].TraceAddress)
		})
	}

	propagateRevert(tree.Nodes, 0, false)
	return tree, nil
}

func pathKey(path []int) string {
	key := ""
	for _, step := range path {
		key += fmt.Sprintf("%d.", step)
	}
	return key
}

func siblingOrder(path []int) int {
	if len(path) == 0 {
		return 0
	}
	return path[len(path)-1]
}

// nearestAncestor finds the arena position of the closest present ancestor
// of path, reporting whether it is the direct parent.
func nearestAncestor(byPath map[string]int, arenaFor map[int]int, path []int) (int, bool) {
	direct := len(path) - 1
	for depth := direct; depth >= 0; depth-- {
		if frameIdx, ok := byPath[pathKey(path[:depth])]; ok {
			return arenaFor[frameIdx], depth == direct
		}
	}
	// Root always exists at this point.
	return 0, false
}

func appendDiagnostic(existing, extra string) string {
	if existing == "" {
		return extra
	}
	return existing + "; " + extra
}

// propagateRevert flags every node under a reverted frame: a partial revert
// is economically meaningful and must stay visible to inspectors.
func propagateRevert(nodes []model.ClassifiedNode, pos int, parentReverted bool) {
	if parentReverted {
		nodes[pos].Reverted = true
	}
	for _, child := range nodes[pos].Children {
		propagateRevert(nodes, child, nodes[pos].Reverted)
	}
}
