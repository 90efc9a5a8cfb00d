package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Minimal ABI fragments for the handful of read-only calls the Chain
// Reader makes (spec §4.2, §6): ERC20 balanceOf, ENS-style reverse
// resolution (registry.resolver, resolver.name), and a boolean agent
// registry membership check. Grounded on ChoSanghyuk-blackholedex's
// pkg/contractclient, which loads an abi.ABI and calls through it rather
// than hand-packing call data ad hoc.
const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

const ensRegistryABIJSON = `[
	{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"resolver","outputs":[{"name":"","type":"address"}],"type":"function"}
]`

const ensResolverABIJSON = `[
	{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"}
]`

const agentRegistryABIJSON = `[
	{"constant":true,"inputs":[{"name":"wallet","type":"address"}],"name":"isRegistered","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

var (
	erc20ABI         abi.ABI
	ensRegistryABI   abi.ABI
	ensResolverABI   abi.ABI
	agentRegistryABI abi.ABI
)

func init() {
	var err error
	erc20ABI, err = abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic("chain: invalid erc20 ABI: " + err.Error())
	}
	ensRegistryABI, err = abi.JSON(strings.NewReader(ensRegistryABIJSON))
	if err != nil {
		panic("chain: invalid ENS registry ABI: " + err.Error())
	}
	ensResolverABI, err = abi.JSON(strings.NewReader(ensResolverABIJSON))
	if err != nil {
		panic("chain: invalid ENS resolver ABI: " + err.Error())
	}
	agentRegistryABI, err = abi.JSON(strings.NewReader(agentRegistryABIJSON))
	if err != nil {
		panic("chain: invalid agent registry ABI: " + err.Error())
	}
}
