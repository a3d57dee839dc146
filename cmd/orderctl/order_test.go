package main

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/asset"
	"github.com/helinwang/bridgetower/pkg/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOrder(t *testing.T, body string) string {
	p := filepath.Join(t.TempDir(), "order.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadOrder(t *testing.T) {
	p := writeOrder(t, `{
		"maker": "0x00000000000000000000000000000000000a11ce",
		"make": {"class": "ERC1155", "token": "0x0000000000000000000000000000000000007070", "id": "7", "value": "10"},
		"take": {"class": "ERC20", "token": "0x0000000000000000000000000000000000000c01", "value": "0xc8"},
		"salt": "42",
		"end": 1700000000
	}`)

	o, err := loadOrder(p)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xa11ce"), o.Maker)
	assert.Equal(t, asset.NewERC1155(common.HexToAddress("0x7070"), big.NewInt(7), big.NewInt(10)), o.MakeAsset)
	assert.Equal(t, asset.NewERC20(common.HexToAddress("0xc01"), big.NewInt(200)), o.TakeAsset)
	assert.Equal(t, big.NewInt(42), o.Salt)
	assert.Equal(t, uint64(1700000000), o.End)
	assert.Equal(t, exchange.DefaultData, o.DataType)
	assert.Empty(t, o.Data)
}

func TestLoadOrderWithData(t *testing.T) {
	p := writeOrder(t, `{
		"maker": "0x00000000000000000000000000000000000a11ce",
		"make": {"class": "ERC721", "token": "0x0000000000000000000000000000000000007070", "id": "3"},
		"take": {"class": "ETH", "value": "1000"},
		"salt": "1",
		"originFees": [{"account": "0x0000000000000000000000000000000000000e41", "value": 100}],
		"makeFill": true
	}`)

	o, err := loadOrder(p)
	require.NoError(t, err)
	assert.Equal(t, asset.NewERC721(common.HexToAddress("0x7070"), big.NewInt(3)), o.MakeAsset)
	assert.Equal(t, asset.NewETH(big.NewInt(1000)), o.TakeAsset)
	assert.Equal(t, exchange.V2, o.DataType)

	d, err := exchange.ParseData(o)
	require.NoError(t, err)
	assert.Equal(t, []asset.Part{{Account: o.Maker, Value: 10000}}, d.Payouts)
	assert.Equal(t, []asset.Part{{Account: common.HexToAddress("0xe41"), Value: 100}}, d.OriginFees)
	assert.True(t, d.IsMakeFill)
}

func TestLoadOrderErrors(t *testing.T) {
	for name, body := range map[string]string{
		"unknown class": `{"make": {"class": "ERC404"}, "take": {"class": "ETH"}}`,
		"bad value":     `{"make": {"class": "ETH", "value": "ten"}, "take": {"class": "ETH"}}`,
		"negative id":   `{"make": {"class": "ETH"}, "take": {"class": "ERC721", "id": "-1"}}`,
		"bad salt":      `{"make": {"class": "ETH"}, "take": {"class": "ETH"}, "salt": "x"}`,
		"not json":      `{`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := loadOrder(writeOrder(t, body))
			assert.Error(t, err)
		})
	}

	_, err := loadOrder(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestParseParts(t *testing.T) {
	parts, err := parseParts([]string{"0x0000000000000000000000000000000000000e41:150"})
	require.NoError(t, err)
	assert.Equal(t, []asset.Part{{Account: common.HexToAddress("0xe41"), Value: 150}}, parts)

	_, err = parseParts([]string{"0xe41"})
	assert.Error(t, err)
	_, err = parseParts([]string{"0x0000000000000000000000000000000000000e41:lots"})
	assert.Error(t, err)
}
