package classifier

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"strings"
)

const v2PairABIJSON = `[
	{"type":"function","name":"swap","stateMutability":"nonpayable","inputs":[
		{"name":"amount0Out","type":"uint256"},
		{"name":"amount1Out","type":"uint256"},
		{"name":"to","type":"address"},
		{"name":"data","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[
		{"name":"to","type":"address"}],"outputs":[
		{"name":"liquidity","type":"uint256"}]},
	{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[
		{"name":"to","type":"address"}],"outputs":[
		{"name":"amount0","type":"uint256"},
		{"name":"amount1","type":"uint256"}]}
]`

const v3PoolABIJSON = `[
	{"type":"function","name":"swap","stateMutability":"nonpayable","inputs":[
		{"name":"recipient","type":"address"},
		{"name":"zeroForOne","type":"bool"},
		{"name":"amountSpecified","type":"int256"},
		{"name":"sqrtPriceLimitX96","type":"uint160"},
		{"name":"data","type":"bytes"}],"outputs":[
		{"name":"amount0","type":"int256"},
		{"name":"amount1","type":"int256"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[
		{"name":"recipient","type":"address"},
		{"name":"tickLower","type":"int24"},
		{"name":"tickUpper","type":"int24"},
		{"name":"amount","type":"uint128"},
		{"name":"data","type":"bytes"}],"outputs":[
		{"name":"amount0","type":"uint256"},
		{"name":"amount1","type":"uint256"}]},
	{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[
		{"name":"tickLower","type":"int24"},
		{"name":"tickUpper","type":"int24"},
		{"name":"amount","type":"uint128"}],"outputs":[
		{"name":"amount0","type":"uint256"},
		{"name":"amount1","type":"uint256"}]},
	{"type":"function","name":"collect","stateMutability":"nonpayable","inputs":[
		{"name":"recipient","type":"address"},
		{"name":"tickLower","type":"int24"},
		{"name":"tickUpper","type":"int24"},
		{"name":"amount0Requested","type":"uint128"},
		{"name":"amount1Requested","type":"uint128"}],"outputs":[
		{"name":"amount0","type":"uint128"},
		{"name":"amount1","type":"uint128"}]},
	{"type":"function","name":"flash","stateMutability":"nonpayable","inputs":[
		{"name":"recipient","type":"address"},
		{"name":"amount0","type":"uint256"},
		{"name":"amount1","type":"uint256"},
		{"name":"data","type":"bytes"}],"outputs":[]}
]`

const erc20ABIJSON = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[
		{"name":"to","type":"address"},
		{"name":"amount","type":"uint256"}],"outputs":[
		{"name":"success","type":"bool"}]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[
		{"name":"from","type":"address"},
		{"name":"to","type":"address"},
		{"name":"amount","type":"uint256"}],"outputs":[
		{"name":"success","type":"bool"}]}
]`

const routerABIJSON = `[
	{"type":"function","name":"swapExactTokensForTokens","stateMutability":"nonpayable","inputs":[
		{"name":"amountIn","type":"uint256"},
		{"name":"amountOutMin","type":"uint256"},
		{"name":"path","type":"address[]"},
		{"name":"to","type":"address"},
		{"name":"deadline","type":"uint256"}],"outputs":[
		{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"swapTokensForExactTokens","stateMutability":"nonpayable","inputs":[
		{"name":"amountOut","type":"uint256"},
		{"name":"amountInMax","type":"uint256"},
		{"name":"path","type":"address[]"},
		{"name":"to","type":"address"},
		{"name":"deadline","type":"uint256"}],"outputs":[
		{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"multicall","stateMutability":"payable","inputs":[
		{"name":"data","type":"bytes[]"}],"outputs":[
		{"name":"results","type":"bytes[]"}]},
	{"type":"function","name":"execute","stateMutability":"payable","inputs":[
		{"name":"commands","type":"bytes"},
		{"name":"inputs","type":"bytes[]"},
		{"name":"deadline","type":"uint256"}],"outputs":[]}
]`

const lendingPoolABIJSON = `[
	{"type":"function","name":"liquidationCall","stateMutability":"nonpayable","inputs":[
		{"name":"collateralAsset","type":"address"},
		{"name":"debtAsset","type":"address"},
		{"name":"user","type":"address"},
		{"name":"debtToCover","type":"uint256"},
		{"name":"receiveAToken","type":"bool"}],"outputs":[]},
	{"type":"function","name":"flashLoan","stateMutability":"nonpayable","inputs":[
		{"name":"receiverAddress","type":"address"},
		{"name":"assets","type":"address[]"},
		{"name":"amounts","type":"uint256[]"},
		{"name":"modes","type":"uint256[]"},
		{"name":"onBehalfOf","type":"address"},
		{"name":"params","type":"bytes"},
		{"name":"referralCode","type":"uint16"}],"outputs":[]}
]`

// V2PairABI returns the parsed constant-product pair ABI.
func V2PairABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(v2PairABIJSON))
}

// V3PoolABI returns the parsed concentrated-liquidity pool ABI.
func V3PoolABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(v3PoolABIJSON))
}

// ERC20ABI returns the parsed token ABI.
func ERC20ABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(erc20ABIJSON))
}

// RouterABI returns the parsed aggregator router ABI.
func RouterABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(routerABIJSON))
}

// LendingPoolABI returns the parsed lending pool ABI.
func LendingPoolABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(lendingPoolABIJSON))
}
