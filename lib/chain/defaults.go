package chain

import "strings"

// InfuraProxyID is appended to the infura urls of the EIP155 defaults.
var InfuraProxyID = "776218ac4734478c90191dde8cae483c" //nolint:gochecknoglobals // overridable at startup

// default chain ids per namespace.
const (
	defaultEIP155ChainID = "0x1"
	defaultSolanaChainID = "0x1"
)

// eip155 contains the known EVM networks indexed by chain id.
var eip155 = map[string]Config{ //nolint:gochecknoglobals // lookup table
	"0x1":  {DisplayName: "Main Ethereum Network", BlockExplorer: "https://etherscan.io", Ticker: "ETH", TickerName: "Ethereum", RPCTarget: "https://mainnet.infura.io/v3/"},
	"0x3":  {DisplayName: "Ropsten Test Network", BlockExplorer: "https://ropsten.etherscan.io", Ticker: "ETH", TickerName: "Ethereum", RPCTarget: "https://ropsten.infura.io/v3/"},
	"0x4":  {DisplayName: "Rinkeby Test Network", BlockExplorer: "https://rinkeby.etherscan.io", Ticker: "ETH", TickerName: "Ethereum", RPCTarget: "https://rinkeby.infura.io/v3/"},
	"0x5":  {DisplayName: "Goerli Test Network", BlockExplorer: "https://goerli.etherscan.io", Ticker: "ETH", TickerName: "Ethereum", RPCTarget: "https://goerli.infura.io/v3/"},
	"0x2a": {DisplayName: "Kovan Test Network", BlockExplorer: "https://kovan.etherscan.io", Ticker: "ETH", TickerName: "Ethereum", RPCTarget: "https://kovan.infura.io/v3/"},
}

// solana contains the known Solana clusters indexed by chain id.
var solana = map[string]Config{ //nolint:gochecknoglobals // lookup table
	"0x1": {DisplayName: "Solana Mainnet", BlockExplorer: "https://explorer.solana.com", Ticker: "SOL", TickerName: "Solana", RPCTarget: "https://api.mainnet-beta.solana.com"},
	"0x2": {DisplayName: "Solana Testnet", BlockExplorer: "https://explorer.solana.com?cluster=testnet", Ticker: "SOL", TickerName: "Solana", RPCTarget: "https://api.testnet.solana.com"},
	"0x3": {DisplayName: "Solana Devnet", BlockExplorer: "https://explorer.solana.com?cluster=devnet", Ticker: "SOL", TickerName: "Solana", RPCTarget: "https://api.devnet.solana.com"},
}

// Default returns the default chain configuration for the namespace and chain id given. An empty chainID selects the
// namespace's default chain. The OTHER namespace has no defaults and ok is false, as it is for unknown chain ids.
func Default(ns Namespace, chainID string) (c Config, ok bool) {
	chainID = strings.ToLower(chainID)

	switch ns {
	case EIP155:
		if chainID == "" {
			chainID = defaultEIP155ChainID
		}

		if c, ok = eip155[chainID]; ok {
			c.RPCTarget += InfuraProxyID
		}
	case SOLANA:
		if chainID == "" {
			chainID = defaultSolanaChainID
		}

		c, ok = solana[chainID]
	default:
		return Config{}, false
	}

	if ok {
		c.ChainNamespace = ns
		c.ChainID = chainID
	}

	return c, ok
}
