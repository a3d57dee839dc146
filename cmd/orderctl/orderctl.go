package main

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/helinwang/bridgetower/pkg/asset"
	"github.com/helinwang/bridgetower/pkg/exchange"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli"
)

var (
	keyPath  string
	chainID  uint64
	exchAddr string
)

func domain() (exchange.Domain, error) {
	if !common.IsHexAddress(exchAddr) {
		return exchange.Domain{}, fmt.Errorf("invalid exchange address %q", exchAddr)
	}
	return exchange.NewDomain(new(big.Int).SetUint64(chainID), common.HexToAddress(exchAddr)), nil
}

func loadKey() (*ecdsa.PrivateKey, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("a key file is required, use -k")
	}
	return crypto.LoadECDSA(keyPath)
}

func keygen(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("keygen needs the output path, please check usage using ./orderctl -h")
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}

	err = crypto.SaveECDSA(path, key)
	if err != nil {
		return err
	}

	fmt.Println(crypto.PubkeyToAddress(key.PublicKey).Hex())
	return nil
}

func hashOrder(c *cli.Context) error {
	o, err := loadOrder(c.Args().First())
	if err != nil {
		return err
	}

	d, err := domain()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "fingerprint\t%s\n", o.Fingerprint().Hex())
	fmt.Fprintf(tw, "struct hash\t%s\n", o.StructHash().Hex())
	fmt.Fprintf(tw, "digest\t%s\n", d.Digest(o).Hex())
	fmt.Fprintf(tw, "data type\t%v\n", o.DataType)
	return tw.Flush()
}

func signOrder(c *cli.Context) error {
	o, err := loadOrder(c.Args().First())
	if err != nil {
		return err
	}

	key, err := loadKey()
	if err != nil {
		return err
	}

	signer := crypto.PubkeyToAddress(key.PublicKey)
	if signer != o.Maker {
		return fmt.Errorf("key of %s can not sign an order of %s", signer.Hex(), o.Maker.Hex())
	}

	d, err := domain()
	if err != nil {
		return err
	}

	sig, err := d.Sign(o, key)
	if err != nil {
		return err
	}

	fmt.Println(hexutil.Encode(sig))
	return nil
}

// parseParts reads ADDRESS:BPS pairs.
func parseParts(values []string) ([]asset.Part, error) {
	var r []asset.Part
	for _, v := range values {
		i := strings.LastIndex(v, ":")
		if i < 0 || !common.IsHexAddress(v[:i]) {
			return nil, fmt.Errorf("invalid part %q, expected ADDRESS:BPS", v)
		}

		var bp uint64
		_, err := fmt.Sscan(v[i+1:], &bp)
		if err != nil {
			return nil, fmt.Errorf("invalid part %q: %v", v, err)
		}
		r = append(r, asset.Part{Account: common.HexToAddress(v[:i]), Value: bp})
	}
	return r, nil
}

func preview(c *cli.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return fmt.Errorf("preview needs the price, please check usage using ./orderctl -h")
	}

	decimals := int32(c.Int("decimals"))
	price, err := decimal.NewFromString(args[0])
	if err != nil {
		return err
	}

	amount := price.Shift(decimals)
	if !amount.Equal(amount.Truncate(0)) || amount.Sign() <= 0 {
		return fmt.Errorf("price %s is not a positive multiple of 10^-%d", args[0], decimals)
	}

	royalties, err := parseParts(c.StringSlice("royalty"))
	if err != nil {
		return err
	}

	buyerFees, err := parseParts(c.StringSlice("buyer-fee"))
	if err != nil {
		return err
	}

	sellerFees, err := parseParts(c.StringSlice("seller-fee"))
	if err != nil {
		return err
	}

	b, err := exchange.Quote(amount.BigInt(), c.Uint64("fee"), royalties, buyerFees, sellerFees)
	if err != nil {
		return err
	}

	show := func(v *big.Int) string {
		return decimal.NewFromBigInt(v, -decimals).String()
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', tabwriter.Debug)
	fmt.Fprintln(tw, "\tBuyer pays\tProtocol fee\tRoyalties\tOrigin fees\tSeller receives\t")
	fmt.Fprintf(tw, "\t%s\t%s\t%s\t%s\t%s\t\n", show(b.Total), show(b.Protocol), show(b.Royalties), show(b.OriginFees), show(b.Proceeds))
	return tw.Flush()
}

func main() {
	app := cli.NewApp()
	app.Name = "orderctl"
	app.Usage = "create, sign and inspect exchange orders"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:        "key, k",
			Usage:       "path to the hex encoded private key file",
			Destination: &keyPath,
		},
		cli.Uint64Flag{
			Name:        "chain",
			Value:       1,
			Usage:       "chain id of the signature domain",
			Destination: &chainID,
		},
		cli.StringFlag{
			Name:        "exchange",
			Usage:       "exchange address, the verifying contract of the signature domain",
			Destination: &exchAddr,
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "keygen",
			Usage:  "Generate a key: ./orderctl keygen PATH",
			Action: keygen,
		},
		{
			Name:   "hash",
			Usage:  "Print the fingerprint and signature digest of an order: ./orderctl -exchange ADDRESS hash ORDER_JSON",
			Action: hashOrder,
		},
		{
			Name:   "sign",
			Usage:  "Sign an order with the maker key: ./orderctl -k KEY -exchange ADDRESS sign ORDER_JSON",
			Action: signOrder,
		},
		{
			Name:  "preview",
			Usage: "Preview the settlement of a sale: ./orderctl preview PRICE (e.g. 1.5)",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "decimals", Value: 18, Usage: "decimals of the payment asset"},
				cli.Uint64Flag{Name: "fee", Usage: "protocol fee in basis points"},
				cli.StringSliceFlag{Name: "royalty", Usage: "royalty as ADDRESS:BPS, repeatable"},
				cli.StringSliceFlag{Name: "buyer-fee", Usage: "origin fee of the buy order as ADDRESS:BPS, repeatable"},
				cli.StringSliceFlag{Name: "seller-fee", Usage: "origin fee of the sell order as ADDRESS:BPS, repeatable"},
			},
			Action: preview,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
