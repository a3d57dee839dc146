package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/access"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

var (
	totalSupplyKey  = []byte("totalSupply")
	decimalsKey     = []byte("decimals")
	allowancePrefix = []byte("allowance")
)

// ERC20 is a plain fungible payment token. It is not whitelisted,
// the exchange only accepts it once the owner of the exchange lists it.
type ERC20 struct {
	access.Ownable
}

// NewERC20 returns the builder of a fungible token whose initial
// supply goes to the deployer.
func NewERC20(name, symbol string, decimals uint8, supply *big.Int) ledger.Builder {
	return func(t *ledger.Tx, addr common.Address) (ledger.Contract, error) {
		tk := &ERC20{Ownable: access.Ownable{Addr: addr}}
		st := t.Storage(addr)
		st.Put(nameKey, name)
		st.Put(symbolKey, symbol)
		st.Put(decimalsKey, decimals)
		tk.InitOwner(t, t.Sender())
		tk.mint(t, t.Sender(), supply)
		return tk, nil
	}
}

// Address returns the address of the token.
func (tk *ERC20) Address() common.Address {
	return tk.Addr
}

// Symbol returns the token symbol.
func (tk *ERC20) Symbol(t *ledger.Tx) string {
	var s string
	t.Storage(tk.Addr).Get(symbolKey, &s)
	return s
}

// Decimals returns the number of decimals of display amounts.
func (tk *ERC20) Decimals(t *ledger.Tx) uint8 {
	var d uint8
	t.Storage(tk.Addr).Get(decimalsKey, &d)
	return d
}

// TotalSupply returns the amount in circulation.
func (tk *ERC20) TotalSupply(t *ledger.Tx) *big.Int {
	return t.Storage(tk.Addr).BigInt(totalSupplyKey)
}

// BalanceOf returns the balance of holder.
func (tk *ERC20) BalanceOf(t *ledger.Tx, holder common.Address) *big.Int {
	return t.Storage(tk.Addr).BigInt(ledger.Key(balancePrefix, holder[:]))
}

// Allowance returns what spender may still move out of owner.
func (tk *ERC20) Allowance(t *ledger.Tx, owner, spender common.Address) *big.Int {
	return t.Storage(tk.Addr).BigInt(ledger.Key(allowancePrefix, owner[:], spender[:]))
}

// Approve sets the allowance of spender over the sender's balance.
func (tk *ERC20) Approve(t *ledger.Tx, spender common.Address, amount *big.Int) error {
	t.Storage(tk.Addr).PutBigInt(ledger.Key(allowancePrefix, t.Sender().Bytes(), spender[:]), amount)
	t.Emit(tk.Addr, "Approval", Approval{Owner: t.Sender(), Spender: spender, Value: amount})
	return nil
}

// Transfer moves amount from the sender to to.
func (tk *ERC20) Transfer(t *ledger.Tx, to common.Address, amount *big.Int) error {
	return tk.move(t, t.Sender(), to, amount)
}

// TransferFrom moves amount from from to to out of the sender's
// allowance.
func (tk *ERC20) TransferFrom(t *ledger.Tx, from, to common.Address, amount *big.Int) error {
	if t.Sender() != from {
		key := ledger.Key(allowancePrefix, from[:], t.Sender().Bytes())
		a := t.Storage(tk.Addr).BigInt(key)
		if a.Cmp(amount) < 0 {
			return ErrInsufficientAllowance
		}
		t.Storage(tk.Addr).PutBigInt(key, a.Sub(a, amount))
	}

	return tk.move(t, from, to, amount)
}

// Mint creates amount for to, owner only.
func (tk *ERC20) Mint(t *ledger.Tx, to common.Address, amount *big.Int) error {
	err := tk.OnlyOwner(t)
	if err != nil {
		return err
	}

	tk.mint(t, to, amount)
	return nil
}

func (tk *ERC20) mint(t *ledger.Tx, to common.Address, amount *big.Int) {
	st := t.Storage(tk.Addr)
	s := tk.TotalSupply(t)
	st.PutBigInt(totalSupplyKey, s.Add(s, amount))
	b := tk.BalanceOf(t, to)
	st.PutBigInt(ledger.Key(balancePrefix, to[:]), b.Add(b, amount))
	t.Emit(tk.Addr, "Transfer", Transfer{To: to, Value: amount})
}

func (tk *ERC20) move(t *ledger.Tx, from, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return ErrTransferToZero
	}

	st := t.Storage(tk.Addr)
	fb := tk.BalanceOf(t, from)
	if fb.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	st.PutBigInt(ledger.Key(balancePrefix, from[:]), fb.Sub(fb, amount))
	tb := tk.BalanceOf(t, to)
	st.PutBigInt(ledger.Key(balancePrefix, to[:]), tb.Add(tb, amount))
	t.Emit(tk.Addr, "Transfer", Transfer{From: from, To: to, Value: amount})
	return nil
}
