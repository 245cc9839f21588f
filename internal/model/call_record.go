package model

// CallRecord is a raw getUserAccountData eth_call result captured for offline decoding.
type CallRecord struct {
	Network     string `json:"network"`
	Address     string `json:"address"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	Result      string `json:"result"`
	CapturedAt  string `json:"captured_at,omitempty"`
}

// DecodedCall is a CallRecord after decoding and classification.
type DecodedCall struct {
	Network     string         `json:"network"`
	Address     string         `json:"address"`
	BlockNumber uint64         `json:"block_number,omitempty"`
	Metrics     AccountMetrics `json:"metrics"`
	NetWorthUSD string         `json:"net_worth_usd"`
	Tier        RiskTier       `json:"tier"`
}

// DecodeError records a decode failure for one input line.
type DecodeError struct {
	Line        int    `json:"line"`
	Network     string `json:"network,omitempty"`
	Address     string `json:"address,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	Error       string `json:"error"`
}
