package contracts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"power-token-exchange/apperrors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Artifact is a compiled contract as written by hardhat
// (artifacts/<Name>.sol/<Name>.json).
type Artifact struct {
	ContractName string
	ABI          abi.ABI
	Bytecode     []byte
}

type artifactFile struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrConfigLoad, "failed to read contract artifact", err)
	}
	return ParseArtifact(data)
}

func ParseArtifact(data []byte) (*Artifact, error) {
	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, apperrors.New(apperrors.ErrConfigLoad, "invalid contract artifact", err)
	}
	parsed, err := abi.JSON(strings.NewReader(string(file.ABI)))
	if err != nil {
		return nil, apperrors.New(apperrors.ErrConfigLoad, "invalid artifact ABI", err)
	}
	bytecode := common.FromHex(file.Bytecode)
	if len(bytecode) == 0 {
		return nil, apperrors.New(apperrors.ErrConfigLoad, "artifact has no bytecode", nil)
	}
	return &Artifact{ContractName: file.ContractName, ABI: parsed, Bytecode: bytecode}, nil
}

// Deploy sends the artifact's creation transaction and waits until the
// contract code is on-chain.
func Deploy(ctx context.Context, backend Backend, auth *bind.TransactOpts, art *Artifact) (common.Address, error) {
	opts := *auth
	opts.Context = ctx
	address, tx, _, err := bind.DeployContract(&opts, art.ABI, art.Bytecode, backend)
	if err != nil {
		return common.Address{}, apperrors.New(apperrors.ErrContractCall, "deploy transaction failed", err)
	}
	if _, err := bind.WaitDeployed(ctx, backend, tx); err != nil {
		return common.Address{}, apperrors.New(apperrors.ErrContractCall,
			fmt.Sprintf("deployment %s did not complete", tx.Hash().Hex()), err)
	}
	return address, nil
}
