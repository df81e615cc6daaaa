package netcalc

import "fmt"

// NextFree returns the first unassigned host address inside subnet.
//
// The subnet's own bare address is treated as taken, and members of taken
// are compared with any CIDR suffix stripped. The scan walks host bit
// patterns in increasing numeric order and skips every pattern whose low
// four bits are zero, reserving one address out of sixteen (in a /24:
// .0, .16, .32, ... .240). Existing deployments were numbered under this
// rule, so it is preserved exactly rather than reduced to the usual
// network/broadcast exclusion.
//
// The scan is a plain linear walk. Pools here are at most a few thousand
// hosts and allocation is rare, so the output stays easy to audit.
func NextFree(subnet CIDR, taken map[string]struct{}) (string, error) {
	used := make(map[string]struct{}, len(taken)+1)
	used[formatAddr(subnet.Addr())] = struct{}{}
	for t := range taken {
		used[StripPrefix(t)] = struct{}{}
	}

	hostBits := uint(32 - subnet.Prefix)
	network := subnet.Addr() >> hostBits << hostBits

	for host := uint64(0); host < 1<<hostBits; host++ {
		if host&0xf == 0 {
			continue
		}
		candidate := formatAddr(network | uint32(host))
		if _, ok := used[candidate]; !ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no assignable address left in %s", ErrSubnetExhausted, subnet)
}
