package ethereum

import (
	_ "embed"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Contract method names.
const (
	methodStart        = "getStart"
	methodEnd          = "getEnd"
	methodAdmin        = "getAdmin"
	methodApproved     = "getApprovedVoters"
	methodVoterDetails = "voterDetails"
)

//go:embed campaign.abi.json
var campaignABIJSON string

var campaignABI = mustParseABI(campaignABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parse campaign abi: %v", err))
	}
	return parsed
}

// voterDetails mirrors the tuple returned by the contract's voterDetails getter.
type voterDetails struct {
	VoterAddress        common.Address
	Name                string
	Phone               string
	BusinessName        string
	FundingAmount       *big.Int
	FundingPurpose      string
	RegistrationDocLink string
	IsVerified          bool
	IsRegistered        bool
}

func decodeVoterDetails(out []interface{}) (voterDetails, error) {
	var d voterDetails
	if len(out) != 9 {
		return d, fmt.Errorf("voterDetails: expected 9 values, got %d", len(out))
	}
	var ok [9]bool
	d.VoterAddress, ok[0] = out[0].(common.Address)
	d.Name, ok[1] = out[1].(string)
	d.Phone, ok[2] = out[2].(string)
	d.BusinessName, ok[3] = out[3].(string)
	d.FundingAmount, ok[4] = out[4].(*big.Int)
	d.FundingPurpose, ok[5] = out[5].(string)
	d.RegistrationDocLink, ok[6] = out[6].(string)
	d.IsVerified, ok[7] = out[7].(bool)
	d.IsRegistered, ok[8] = out[8].(bool)
	for i, good := range ok {
		if !good {
			return voterDetails{}, fmt.Errorf("voterDetails: unexpected type %T at output %d", out[i], i)
		}
	}
	return d, nil
}
