package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/helinwang/bridgetower/pkg/access"
	"github.com/helinwang/bridgetower/pkg/asset"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

// ERC721Config holds the immutable settings of a collection.
type ERC721Config struct {
	Name              string
	Symbol            string
	BaseURI           string
	LazyTransferProxy common.Address
}

// Transfer is emitted when a collection token or fungible amount
// changes hands.
type Transfer struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value"`
}

// Approval is emitted when a spender is approved.
type Approval struct {
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
	Value   *big.Int       `json:"value"`
}

var (
	ownerOfPrefix  = []byte("ownerOf")
	approvedPrefix = []byte("approved")
	countPrefix    = []byte("count")
)

// ERC721 is a whitelisted collection of unique tokens minted by its
// minters.
type ERC721 struct {
	access.GatedOwnable
}

// NewERC721 returns the builder of a collection owned by the
// deployer, who is also its first minter.
func NewERC721(gate access.Gate, cfg ERC721Config) ledger.Builder {
	return func(t *ledger.Tx, addr common.Address) (ledger.Contract, error) {
		tk := &ERC721{GatedOwnable: access.GatedOwnable{
			Ownable: access.Ownable{Addr: addr},
			Gate:    gate,
		}}

		st := t.Storage(addr)
		st.Put(nameKey, cfg.Name)
		st.Put(symbolKey, cfg.Symbol)
		st.Put(baseURIKey, cfg.BaseURI)
		st.Put(lazyProxyKey, cfg.LazyTransferProxy)
		tk.InitOwner(t, t.Sender())
		st.PutBool(ledger.Key(minterPrefix, t.Sender().Bytes()), true)
		return tk, nil
	}
}

// Address returns the address of the collection.
func (tk *ERC721) Address() common.Address {
	return tk.Addr
}

// Name returns the collection name.
func (tk *ERC721) Name(t *ledger.Tx) string {
	var s string
	t.Storage(tk.Addr).Get(nameKey, &s)
	return s
}

// Symbol returns the collection symbol.
func (tk *ERC721) Symbol(t *ledger.Tx) string {
	var s string
	t.Storage(tk.Addr).Get(symbolKey, &s)
	return s
}

// TokenURI returns the metadata URI of id.
func (tk *ERC721) TokenURI(t *ledger.Tx, id *big.Int) (string, error) {
	if tk.OwnerOf(t, id) == (common.Address{}) {
		return "", ErrNonexistentToken
	}

	var base, u string
	st := t.Storage(tk.Addr)
	st.Get(baseURIKey, &base)
	st.Get(ledger.Key(tokenURIPrefix, id.Bytes()), &u)
	return base + u, nil
}

// OwnerOf returns the holder of id, the zero address if it does not
// exist.
func (tk *ERC721) OwnerOf(t *ledger.Tx, id *big.Int) common.Address {
	return t.Storage(tk.Addr).Address(ledger.Key(ownerOfPrefix, id.Bytes()))
}

// BalanceOf returns the number of tokens held by holder.
func (tk *ERC721) BalanceOf(t *ledger.Tx, holder common.Address) *big.Int {
	return t.Storage(tk.Addr).BigInt(ledger.Key(countPrefix, holder[:]))
}

// GetApproved returns the address approved for id.
func (tk *ERC721) GetApproved(t *ledger.Tx, id *big.Int) common.Address {
	return t.Storage(tk.Addr).Address(ledger.Key(approvedPrefix, id.Bytes()))
}

// IsApprovedForAll reports whether operator may move every token of
// owner. The lazy transfer proxy is approved for everyone.
func (tk *ERC721) IsApprovedForAll(t *ledger.Tx, owner, operator common.Address) bool {
	st := t.Storage(tk.Addr)
	if lazy := st.Address(lazyProxyKey); lazy != (common.Address{}) && operator == lazy {
		return true
	}
	return st.Bool(ledger.Key(approvalPrefix, owner[:], operator[:]))
}

// Approve lets to move id.
func (tk *ERC721) Approve(t *ledger.Tx, to common.Address, id *big.Int) error {
	err := tk.Gate.Require(t, t.Sender(), to)
	if err != nil {
		return err
	}

	owner := tk.OwnerOf(t, id)
	if owner == (common.Address{}) {
		return ErrNonexistentToken
	}
	if t.Sender() != owner && !tk.IsApprovedForAll(t, owner, t.Sender()) {
		return ErrNotApproved
	}

	t.Storage(tk.Addr).Put(ledger.Key(approvedPrefix, id.Bytes()), to)
	t.Emit(tk.Addr, "Approval", Approval{Owner: owner, Spender: to, Value: id})
	return nil
}

// SetApprovalForAll approves or revokes operator for the sender.
func (tk *ERC721) SetApprovalForAll(t *ledger.Tx, operator common.Address, approved bool) error {
	err := tk.Gate.Require(t, t.Sender())
	if err != nil {
		return err
	}

	if approved {
		err = tk.Gate.Require(t, operator)
		if err != nil {
			return err
		}
	}

	t.Storage(tk.Addr).PutBool(ledger.Key(approvalPrefix, t.Sender().Bytes(), operator[:]), approved)
	t.Emit(tk.Addr, "ApprovalForAll", ApprovalForAll{Owner: t.Sender(), Operator: operator, Approved: approved})
	return nil
}

// SafeTransferFrom moves id from from to to.
func (tk *ERC721) SafeTransferFrom(t *ledger.Tx, from, to common.Address, id *big.Int) error {
	err := tk.Gate.Require(t, t.Sender(), from, to)
	if err != nil {
		return err
	}

	owner := tk.OwnerOf(t, id)
	if owner == (common.Address{}) {
		return ErrNonexistentToken
	}
	if owner != from {
		return ErrNotApproved
	}

	s := t.Sender()
	if s != owner && tk.GetApproved(t, id) != s && !tk.IsApprovedForAll(t, owner, s) {
		return ErrNotApproved
	}

	tk.move(t, from, to, id)
	return nil
}

func (tk *ERC721) move(t *ledger.Tx, from, to common.Address, id *big.Int) {
	st := t.Storage(tk.Addr)
	st.Delete(ledger.Key(approvedPrefix, id.Bytes()))
	if from != (common.Address{}) {
		c := tk.BalanceOf(t, from)
		st.PutBigInt(ledger.Key(countPrefix, from[:]), c.Sub(c, big.NewInt(1)))
	}
	c := tk.BalanceOf(t, to)
	st.PutBigInt(ledger.Key(countPrefix, to[:]), c.Add(c, big.NewInt(1)))
	st.Put(ledger.Key(ownerOfPrefix, id.Bytes()), to)
	t.Emit(tk.Addr, "Transfer", Transfer{From: from, To: to, Value: id})
}

// IsMinter reports whether addr may mint.
func (tk *ERC721) IsMinter(t *ledger.Tx, addr common.Address) bool {
	return t.Storage(tk.Addr).Bool(ledger.Key(minterPrefix, addr[:]))
}

// AddMinter grants addr the minter role.
func (tk *ERC721) AddMinter(t *ledger.Tx, addr common.Address) error {
	return tk.setMinter(t, addr, true)
}

// RemoveMinter revokes the minter role.
func (tk *ERC721) RemoveMinter(t *ledger.Tx, addr common.Address) error {
	return tk.setMinter(t, addr, false)
}

func (tk *ERC721) setMinter(t *ledger.Tx, addr common.Address, ok bool) error {
	err := tk.OnlyOwner(t)
	if err != nil {
		return err
	}

	t.Storage(tk.Addr).PutBool(ledger.Key(minterPrefix, addr[:]), ok)
	t.Emit(tk.Addr, "MinterStatusChanged", MinterStatusChanged{Minter: addr, Status: ok})
	return nil
}

// Mint creates id for to with the given royalties.
func (tk *ERC721) Mint(t *ledger.Tx, to common.Address, id *big.Int, uri string, royalties []asset.Part) error {
	if !tk.IsMinter(t, t.Sender()) {
		return ErrNotMinter
	}

	err := tk.Gate.Require(t, t.Sender(), to)
	if err != nil {
		return err
	}

	return tk.mint(t, to, id, uri, royalties)
}

// MintAndTransfer mints the lazily described token to to. It is open
// to minters and the lazy transfer proxy.
func (tk *ERC721) MintAndTransfer(t *ledger.Tx, data asset.MintData, to common.Address) error {
	lazy := t.Storage(tk.Addr).Address(lazyProxyKey)
	if !tk.IsMinter(t, t.Sender()) && (lazy == (common.Address{}) || t.Sender() != lazy) {
		return ErrNotMinter
	}

	err := tk.Gate.Require(t, t.Sender(), to)
	if err != nil {
		return err
	}

	if len(data.Creators) == 0 || !tk.IsMinter(t, data.Creators[0].Account) {
		return ErrNotCreator
	}

	return tk.mint(t, to, data.TokenID, data.TokenURI, data.Royalties)
}

// TransferFromOrMint moves the token described by data from from, or
// mints it to to when it does not exist yet and from is its first
// creator.
func (tk *ERC721) TransferFromOrMint(t *ledger.Tx, data asset.MintData, from, to common.Address) error {
	if tk.OwnerOf(t, data.TokenID) != (common.Address{}) {
		return tk.SafeTransferFrom(t, from, to, data.TokenID)
	}

	if len(data.Creators) == 0 || data.Creators[0].Account != from {
		return ErrNotCreator
	}
	return tk.MintAndTransfer(t, data, to)
}

func (tk *ERC721) mint(t *ledger.Tx, to common.Address, id *big.Int, uri string, royalties []asset.Part) error {
	if to == (common.Address{}) {
		return ErrTransferToZero
	}

	if tk.OwnerOf(t, id) != (common.Address{}) {
		return ErrTokenExists
	}

	err := checkRoyalties(royalties)
	if err != nil {
		return err
	}

	st := t.Storage(tk.Addr)
	if uri != "" {
		st.Put(ledger.Key(tokenURIPrefix, id.Bytes()), uri)
	}
	if len(royalties) > 0 {
		st.Put(ledger.Key(royaltiesPrefix, id.Bytes()), royalties)
		t.Emit(tk.Addr, "RoyaltiesSet", RoyaltiesSet{ID: id, Royalties: royalties})
	}

	tk.move(t, common.Address{}, to, id)
	return nil
}

// Royalties returns the royalties of id.
func (tk *ERC721) Royalties(t *ledger.Tx, id *big.Int) []asset.Part {
	var parts []asset.Part
	t.Storage(tk.Addr).Get(ledger.Key(royaltiesPrefix, id.Bytes()), &parts)
	return parts
}
