package blockchain

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/dao-reconciler/pkg/utils"
)

// DefaultNamespace prefixes the program gateway methods
const DefaultNamespace = "dao"

// RPCService implements Service over a JSON-RPC caller
type RPCService struct {
	contracts *RPCContractManager
	accounts  *RPCAccountReader
}

// NewRPCService creates a service whose gateway methods live under namespace
// and whose account lookups use the given commitment level
func NewRPCService(caller Caller, namespace, commitment string) *RPCService {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	logger := utils.ComponentLogger("blockchain")
	return &RPCService{
		contracts: &RPCContractManager{caller: caller, namespace: namespace, logger: logger},
		accounts:  &RPCAccountReader{caller: caller, commitment: commitment, logger: logger},
	}
}

func (s *RPCService) GetContractManager() ContractManager {
	return s.contracts
}

func (s *RPCService) GetAccountReader() AccountReader {
	return s.accounts
}

// callError classifies a failed call as a timeout or a blockchain error
func callError(ctx context.Context, method string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return utils.WrapError(utils.ErrCodeTimeout, "Blockchain call timed out: "+method, err)
	}
	return utils.WrapError(utils.ErrCodeBlockchain, "Blockchain call failed: "+method, err)
}

func logCall(logger *logrus.Entry, method string, found bool, fields logrus.Fields) {
	logger.WithFields(fields).WithFields(logrus.Fields{"method": method, "found": found}).Debug("Blockchain lookup")
}
