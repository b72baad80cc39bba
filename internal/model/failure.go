package model

// BlockFailure reports a block whose classification was abandoned, with the
// offending block number and reason. Failures are emitted, never silently
// dropped, and do not halt processing of other blocks.
type BlockFailure struct {
	BlockNumber uint64 `json:"block_number"`
	Stage       string `json:"stage"`
	Reason      string `json:"reason"`
}
