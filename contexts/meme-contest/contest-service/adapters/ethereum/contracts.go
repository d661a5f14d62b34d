package ethereum

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const contestABIJSON = `[
  {"type":"function","name":"memes","stateMutability":"view",
   "inputs":[{"name":"memeId","type":"uint256"}],
   "outputs":[
     {"name":"creator","type":"address"},
     {"name":"ipfsHash","type":"string"},
     {"name":"title","type":"string"},
     {"name":"description","type":"string"},
     {"name":"socialLinks","type":"string"},
     {"name":"networkId","type":"uint256"},
     {"name":"voteCount","type":"uint256"},
     {"name":"submissionTime","type":"uint256"},
     {"name":"isActive","type":"bool"},
     {"name":"hasBeenMinted","type":"bool"}]},
  {"type":"function","name":"votingConfiguration","stateMutability":"view","inputs":[],
   "outputs":[
     {"name":"maxVotes","type":"uint256"},
     {"name":"contestDuration","type":"uint256"},
     {"name":"minVotesForWin","type":"uint256"},
     {"name":"voteCost","type":"uint256"}]},
  {"type":"function","name":"hasVoted","stateMutability":"view",
   "inputs":[{"name":"memeId","type":"uint256"},{"name":"voter","type":"address"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"voteMeme","stateMutability":"payable",
   "inputs":[{"name":"memeId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"mintNFT","stateMutability":"nonpayable",
   "inputs":[{"name":"memeId","type":"uint256"},{"name":"ipId","type":"string"}],"outputs":[]}
]`

const rankingABIJSON = `[
  {"type":"function","name":"updateRanking","stateMutability":"nonpayable",
   "inputs":[{"name":"user","type":"address"},{"name":"points","type":"uint256"},{"name":"isWin","type":"bool"}],
   "outputs":[]}
]`

var (
	contestABI = mustParseABI("contest", contestABIJSON)
	rankingABI = mustParseABI("ranking", rankingABIJSON)
)

func mustParseABI(name string, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse %s abi: %v", name, err))
	}
	return parsed
}

// isRevert reports whether err is a contract-level rejection that retrying
// cannot fix.
func isRevert(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
