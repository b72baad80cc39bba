package tree

import (
	"context"
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"mevscope/internal/classifier"
	"mevscope/internal/metadata"
	"mevscope/internal/model"
)

var (
	testPool   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testToken0 = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testToken1 = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	testRouter = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testSigner = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	registry, err := classifier.DefaultRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	cache := metadata.NewCache(metadata.NewStaticSource(map[common.Address]metadata.Entry{
		testPool: {
			Protocol: metadata.ProtocolUniswapV3,
			Pool: &metadata.PoolInfo{
				Protocol: model.PoolConcentrated,
				Token0:   testToken0,
				Token1:   testToken1,
				FeePPM:   3000,
			},
		},
	}))
	return NewBuilder(registry, cache, 2, nil)
}

func swapFrame(t *testing.T, path []int) model.RawCallTrace {
	t.Helper()
	poolABI, err := classifier.V3PoolABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	method := poolABI.Methods["swap"]
	input, err := method.Inputs.Pack(testSigner, true, big.NewInt(1000), big.NewInt(0), []byte{})
	if err != nil {
		t.Fatalf("pack input: %v", err)
	}
	output, err := method.Outputs.Pack(big.NewInt(1000), big.NewInt(-900))
	if err != nil {
		t.Fatalf("pack output: %v", err)
	}
	return model.RawCallTrace{
		TraceAddress: path,
		Kind:         model.CallKindCall,
		From:         testRouter,
		To:           testPool,
		Input:        append(append([]byte{}, method.ID...), input...),
		Output:       output,
	}
}

func rootFrame() model.RawCallTrace {
	return model.RawCallTrace{
		Kind:  model.CallKindCall,
		From:  testSigner,
		To:    testRouter,
		Input: []byte{0xde, 0xad, 0xbe, 0xef},
	}
}

func TestBuildTreeOneNodePerFrame(t *testing.T) {
	builder := newTestBuilder(t)

	tx := model.TxTrace{
		Hash:   common.HexToHash("0x01"),
		From:   testSigner,
		Frames: []model.RawCallTrace{rootFrame(), swapFrame(t, []int{0})},
	}

	tree, err := builder.BuildTree(context.Background(), tx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(tree.Nodes) != 2 {
		t.Fatalf("node count mismatch: %d", len(tree.Nodes))
	}
	root := tree.Root()
	if root == nil || root.Action.Kind != model.ActionUnknown {
		t.Fatalf("root action mismatch: %+v", root)
	}
	if root.Malformed {
		t.Fatalf("unknown selector must not flag the node")
	}
	if !reflect.DeepEqual(root.Children, []int{1}) {
		t.Fatalf("children mismatch: %v", root.Children)
	}

	swap, ok := tree.Nodes[1].Action.Data.(model.SwapAction)
	if !ok {
		t.Fatalf("child action mismatch: %+v", tree.Nodes[1].Action)
	}
	if swap.TokenIn != testToken0 || swap.TokenOut != testToken1 {
		t.Fatalf("swap direction mismatch: %+v", swap)
	}
	if swap.AmountIn.Cmp(big.NewInt(1000)) != 0 || swap.AmountOut.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("swap amounts mismatch: %+v", swap)
	}
}

func TestBuildTreeDeterministic(t *testing.T) {
	builder := newTestBuilder(t)

	tx := model.TxTrace{
		Hash: common.HexToHash("0x02"),
		From: testSigner,
		Frames: []model.RawCallTrace{
			rootFrame(),
			swapFrame(t, []int{1}),
			swapFrame(t, []int{0}),
		},
	}

	first, err := builder.BuildTree(context.Background(), tx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	second, err := builder.BuildTree(context.Background(), tx)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical input produced different trees")
	}
	if !reflect.DeepEqual(first.Root().Children, []int{2, 1}) {
		t.Fatalf("sibling order mismatch: %v", first.Root().Children)
	}
}

func TestBuildTreeDuplicatePath(t *testing.T) {
	builder := newTestBuilder(t)

	tx := model.TxTrace{
		Hash: common.HexToHash("0x03"),
		Frames: []model.RawCallTrace{
			rootFrame(),
			swapFrame(t, []int{0}),
			swapFrame(t, []int{0}),
		},
	}

	if _, err := builder.BuildTree(context.Background(), tx); !errors.Is(err, ErrMalformedTrace) {
		t.Fatalf("expected ErrMalformedTrace, got %v", err)
	}
}

func TestBuildTreeNoRoot(t *testing.T) {
	builder := newTestBuilder(t)

	tx := model.TxTrace{
		Hash:   common.HexToHash("0x04"),
		Frames: []model.RawCallTrace{swapFrame(t, []int{0})},
	}

	if _, err := builder.BuildTree(context.Background(), tx); !errors.Is(err, ErrMalformedTrace) {
		t.Fatalf("expected ErrMalformedTrace, got %v", err)
	}
}

func TestBuildTreeNegativePath(t *testing.T) {
	builder := newTestBuilder(t)

	tx := model.TxTrace{
		Hash:   common.HexToHash("0x05"),
		Frames: []model.RawCallTrace{rootFrame(), swapFrame(t, []int{-1})},
	}

	if _, err := builder.BuildTree(context.Background(), tx); !errors.Is(err, ErrMalformedTrace) {
		t.Fatalf("expected ErrMalformedTrace, got %v", err)
	}
}

func TestBuildTreeMissingParent(t *testing.T) {
	builder := newTestBuilder(t)

	// Frame [0 0] has no parent [0]; it must attach to the root and be
	// flagged, not dropped.
	tx := model.TxTrace{
		Hash:   common.HexToHash("0x06"),
		Frames: []model.RawCallTrace{rootFrame(), swapFrame(t, []int{0, 0})},
	}

	tree, err := builder.BuildTree(context.Background(), tx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(tree.Nodes) != 2 {
		t.Fatalf("node count mismatch: %d", len(tree.Nodes))
	}
	if !reflect.DeepEqual(tree.Root().Children, []int{1}) {
		t.Fatalf("orphan not attached to root: %v", tree.Root().Children)
	}
	if !tree.Nodes[1].Malformed {
		t.Fatalf("orphan node must be flagged")
	}
	if _, ok := tree.Nodes[1].Action.Data.(model.SwapAction); !ok {
		t.Fatalf("orphan node must still classify: %+v", tree.Nodes[1].Action)
	}
}

func TestBuildTreeRevertPropagation(t *testing.T) {
	builder := newTestBuilder(t)

	parent := swapFrame(t, []int{0})
	parent.Reverted = true
	child := swapFrame(t, []int{0, 0})

	tx := model.TxTrace{
		Hash:   common.HexToHash("0x07"),
		Frames: []model.RawCallTrace{rootFrame(), parent, child},
	}

	tree, err := builder.BuildTree(context.Background(), tx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var reverted int
	tree.Walk(func(node *model.ClassifiedNode) {
		if node.Reverted {
			reverted++
		}
	})
	if reverted != 2 {
		t.Fatalf("revert propagation mismatch: %d nodes flagged", reverted)
	}
	if tree.Root().Reverted {
		t.Fatalf("root must not inherit a child's revert")
	}
}

func TestBuildTreeEmptyFrames(t *testing.T) {
	builder := newTestBuilder(t)

	tree, err := builder.BuildTree(context.Background(), model.TxTrace{Hash: common.HexToHash("0x08")})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	root := tree.Root()
	if root == nil || !root.Malformed {
		t.Fatalf("empty trace must yield a flagged synthetic root: %+v", root)
	}
}

func TestBuildForestOrder(t *testing.T) {
	builder := newTestBuilder(t)

	block := model.BlockTrace{
		Number: 100,
		Txs: []model.TxTrace{
			{Hash: common.HexToHash("0x0a"), Index: 0, Frames: []model.RawCallTrace{rootFrame()}},
			{Hash: common.HexToHash("0x0b"), Index: 1, Frames: []model.RawCallTrace{rootFrame()}},
			{Hash: common.HexToHash("0x0c"), Index: 2, Frames: []model.RawCallTrace{rootFrame()}},
		},
	}

	forest, err := builder.Build(context.Background(), block)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(forest.Trees) != 3 {
		t.Fatalf("tree count mismatch: %d", len(forest.Trees))
	}
	for i, tree := range forest.Trees {
		if tree.TxHash != block.Txs[i].Hash {
			t.Fatalf("tree %d out of inclusion order: %s", i, tree.TxHash.Hex())
		}
	}
}

func TestBuildMalformedBlockFails(t *testing.T) {
	builder := newTestBuilder(t)

	block := model.BlockTrace{
		Number: 101,
		Txs: []model.TxTrace{
			{Hash: common.HexToHash("0x0a"), Frames: []model.RawCallTrace{rootFrame()}},
			{Hash: common.HexToHash("0x0b"), Frames: []model.RawCallTrace{swapFrame(t, []int{0})}},
		},
	}

	if _, err := builder.Build(context.Background(), block); !errors.Is(err, ErrMalformedTrace) {
		t.Fatalf("expected ErrMalformedTrace, got %v", err)
	}
}
