package exchange

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/asset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	creator := common.HexToAddress("0xa11ce")
	b, err := Quote(big.NewInt(200), 300, []asset.Part{{Account: creator, Value: 1000}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(206), b.Total)
	assert.Equal(t, big.NewInt(12), b.Protocol)
	assert.Equal(t, big.NewInt(20), b.Royalties)
	assert.Equal(t, 0, b.OriginFees.Sign())
	assert.Equal(t, big.NewInt(174), b.Proceeds)

	buyer := []asset.Part{{Account: common.HexToAddress("0xe41"), Value: 100}}
	seller := []asset.Part{{Account: common.HexToAddress("0xe42"), Value: 200}}
	b, err = Quote(big.NewInt(1000), 0, nil, buyer, seller)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1010), b.Total)
	assert.Equal(t, 0, b.Protocol.Sign())
	assert.Equal(t, big.NewInt(30), b.OriginFees)
	assert.Equal(t, big.NewInt(980), b.Proceeds)

	_, err = Quote(big.NewInt(1000), 0, []asset.Part{{Value: 5001}}, nil, nil)
	assert.Equal(t, ErrRoyaltiesTooHigh, err)
}
