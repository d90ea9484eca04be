package blockchain

import (
	"context"

	"github.com/sirupsen/logrus"
)

const getAccountInfoMethod = "getAccountInfo"

// RPCAccountReader looks up accounts with the cluster getAccountInfo method
type RPCAccountReader struct {
	caller     Caller
	commitment string
	logger     *logrus.Entry
}

type accountInfoConfig struct {
	Encoding   string `json:"encoding"`
	Commitment string `json:"commitment,omitempty"`
}

type accountInfoResponse struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value *AccountInfo `json:"value"`
}

// GetAccountInfo returns nil when the address has no account
func (r *RPCAccountReader) GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	var resp accountInfoResponse
	cfg := accountInfoConfig{Encoding: "base64", Commitment: r.commitment}
	if err := r.caller.Call(ctx, &resp, getAccountInfoMethod, address, cfg); err != nil {
		return nil, callError(ctx, getAccountInfoMethod, err)
	}
	logCall(r.logger, getAccountInfoMethod, resp.Value != nil, logrus.Fields{
		"address": address,
		"slot":    resp.Context.Slot,
	})
	return resp.Value, nil
}
