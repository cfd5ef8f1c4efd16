package ethereum

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseDeployments reads "chainID:address" pairs separated by commas, e.g.
// "5777:0x5FbDB2315678afecb367f032d93F642f64180aa3,11155111:0x...".
func ParseDeployments(s string) (map[string]common.Address, error) {
	out := make(map[string]common.Address)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		network, addr, ok := strings.Cut(pair, ":")
		network = strings.TrimSpace(network)
		addr = strings.TrimSpace(addr)
		if !ok || network == "" {
			return nil, fmt.Errorf("deployment %q: expected chainID:address", pair)
		}
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("deployment %q: invalid contract address", pair)
		}
		if _, dup := out[network]; dup {
			return nil, fmt.Errorf("deployment %q: network %s listed twice", pair, network)
		}
		out[network] = common.HexToAddress(addr)
	}
	return out, nil
}
