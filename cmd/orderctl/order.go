package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/asset"
	"github.com/helinwang/bridgetower/pkg/exchange"
)

// assetJSON is an asset as written by hand: a class name, the token
// contract and decimal amounts.
type assetJSON struct {
	Class string         `json:"class"`
	Token common.Address `json:"token"`
	ID    string         `json:"id"`
	Value string         `json:"value"`
}

type orderJSON struct {
	Maker      common.Address `json:"maker"`
	Taker      common.Address `json:"taker"`
	Make       assetJSON      `json:"make"`
	Take       assetJSON      `json:"take"`
	Salt       string         `json:"salt"`
	Start      uint64         `json:"start"`
	End        uint64         `json:"end"`
	Payouts    []asset.Part   `json:"payouts"`
	OriginFees []asset.Part   `json:"originFees"`
	MakeFill   bool           `json:"makeFill"`
}

func parseInt(s, field string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}

	v, ok := new(big.Int).SetString(s, 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%s: invalid number %q", field, s)
	}
	return v, nil
}

func (a assetJSON) toAsset() (asset.Asset, error) {
	value, err := parseInt(a.Value, "value")
	if err != nil {
		return asset.Asset{}, err
	}

	switch a.Class {
	case "ETH":
		return asset.NewETH(value), nil
	case "ERC20":
		return asset.NewERC20(a.Token, value), nil
	}

	id, err := parseInt(a.ID, "id")
	if err != nil {
		return asset.Asset{}, err
	}

	switch a.Class {
	case "ERC721":
		return asset.NewERC721(a.Token, id), nil
	case "ERC1155":
		return asset.NewERC1155(a.Token, id, value), nil
	}
	return asset.Asset{}, fmt.Errorf("unsupported asset class %q", a.Class)
}

func (o orderJSON) toOrder() (exchange.Order, error) {
	mk, err := o.Make.toAsset()
	if err != nil {
		return exchange.Order{}, fmt.Errorf("make: %w", err)
	}

	tk, err := o.Take.toAsset()
	if err != nil {
		return exchange.Order{}, fmt.Errorf("take: %w", err)
	}

	salt, err := parseInt(o.Salt, "salt")
	if err != nil {
		return exchange.Order{}, err
	}

	r := exchange.Order{
		Maker:     o.Maker,
		Taker:     o.Taker,
		MakeAsset: mk,
		TakeAsset: tk,
		Salt:      salt,
		Start:     o.Start,
		End:       o.End,
		DataType:  exchange.DefaultData,
	}

	if len(o.Payouts) > 0 || len(o.OriginFees) > 0 || o.MakeFill {
		payouts := o.Payouts
		if len(payouts) == 0 {
			payouts = []asset.Part{{Account: o.Maker, Value: 10000}}
		}

		r.DataType = exchange.V2
		r.Data = exchange.EncodeV2(exchange.OrderData{
			Payouts:    payouts,
			OriginFees: o.OriginFees,
			IsMakeFill: o.MakeFill,
		})
	}
	return r, nil
}

func loadOrder(path string) (exchange.Order, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return exchange.Order{}, err
	}

	var o orderJSON
	err = json.Unmarshal(b, &o)
	if err != nil {
		return exchange.Order{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return o.toOrder()
}
