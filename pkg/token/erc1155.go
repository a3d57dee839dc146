package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/ethereum/go-ethereum/log"
	"github.com/helinwang/bridgetower/pkg/access"
	"github.com/helinwang/bridgetower/pkg/asset"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

// ERC1155Config holds the immutable settings of a multi token.
type ERC1155Config struct {
	Name              string
	Symbol            string
	BaseURI           string
	ContractURI       string
	TransferProxy     common.Address
	LazyTransferProxy common.Address
	// LockPeriod defaults to DefaultLockPeriod when zero.
	LockPeriod uint64
}

// TransferSingle is emitted for every single id transfer, mint
// included.
type TransferSingle struct {
	Operator common.Address `json:"operator"`
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	ID       *big.Int       `json:"id"`
	Value    *big.Int       `json:"value"`
}

// TransferBatch is emitted for multi id transfers.
type TransferBatch struct {
	Operator common.Address `json:"operator"`
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	IDs      []*big.Int     `json:"ids"`
	Values   []*big.Int     `json:"values"`
}

// ApprovalForAll is emitted when an operator is approved or revoked.
type ApprovalForAll struct {
	Owner    common.Address `json:"owner"`
	Operator common.Address `json:"operator"`
	Approved bool           `json:"approved"`
}

// PartnerStatusChanged is emitted when a partner is added or removed.
type PartnerStatusChanged struct {
	Partner common.Address `json:"partner"`
	Status  bool           `json:"status"`
}

// MinterStatusChanged is emitted when a minter is added or removed.
type MinterStatusChanged struct {
	Minter common.Address `json:"minter"`
	Status bool           `json:"status"`
}

// Creators is emitted on the first mint of an id.
type Creators struct {
	ID       *big.Int     `json:"id"`
	Creators []asset.Part `json:"creators"`
}

// RoyaltiesSet is emitted when the royalties of an id change.
type RoyaltiesSet struct {
	ID        *big.Int     `json:"id"`
	Royalties []asset.Part `json:"royalties"`
}

// LockPeriodChanged is emitted when the owner sets a new lock period.
type LockPeriodChanged struct {
	Period uint64 `json:"period"`
}

var (
	nameKey          = []byte("name")
	symbolKey        = []byte("symbol")
	baseURIKey       = []byte("baseURI")
	contractURIKey   = []byte("contractURI")
	transferProxyKey = []byte("transferProxy")
	lazyProxyKey     = []byte("lazyTransferProxy")

	balancePrefix   = []byte("balance")
	approvalPrefix  = []byte("approval")
	partnerPrefix   = []byte("partner")
	minterPrefix    = []byte("minter")
	supplyPrefix    = []byte("supply")
	mintedPrefix    = []byte("minted")
	creatorsPrefix  = []byte("creators")
	royaltiesPrefix = []byte("royalties")
	tokenURIPrefix  = []byte("tokenURI")
)

// ERC1155 is a whitelisted multi token. Tokens delivered by the
// exchange proxies are locked for the lock period of the token.
type ERC1155 struct {
	access.GatedOwnable
	locks lockLedger
}

// NewERC1155 returns the builder of a multi token owned by the
// deployer, who is also its first partner.
func NewERC1155(gate access.Gate, cfg ERC1155Config) ledger.Builder {
	return func(t *ledger.Tx, addr common.Address) (ledger.Contract, error) {
		tk := &ERC1155{
			GatedOwnable: access.GatedOwnable{
				Ownable: access.Ownable{Addr: addr},
				Gate:    gate,
			},
			locks: lockLedger{addr: addr},
		}

		st := t.Storage(addr)
		st.Put(nameKey, cfg.Name)
		st.Put(symbolKey, cfg.Symbol)
		st.Put(baseURIKey, cfg.BaseURI)
		st.Put(contractURIKey, cfg.ContractURI)
		st.Put(transferProxyKey, cfg.TransferProxy)
		st.Put(lazyProxyKey, cfg.LazyTransferProxy)
		if cfg.LockPeriod != 0 {
			tk.locks.setPeriod(t, cfg.LockPeriod)
		}

		tk.InitOwner(t, t.Sender())
		tk.setPartner(t, t.Sender(), true)
		return tk, nil
	}
}

// Address returns the address of the token.
func (tk *ERC1155) Address() common.Address {
	return tk.Addr
}

func (tk *ERC1155) str(t *ledger.Tx, key []byte) string {
	var s string
	t.Storage(tk.Addr).Get(key, &s)
	return s
}

// Name returns the collection name.
func (tk *ERC1155) Name(t *ledger.Tx) string {
	return tk.str(t, nameKey)
}

// Symbol returns the collection symbol.
func (tk *ERC1155) Symbol(t *ledger.Tx) string {
	return tk.str(t, symbolKey)
}

// BaseURI returns the prefix of token URIs.
func (tk *ERC1155) BaseURI(t *ledger.Tx) string {
	return tk.str(t, baseURIKey)
}

// ContractURI returns the collection metadata URI.
func (tk *ERC1155) ContractURI(t *ledger.Tx) string {
	return tk.str(t, contractURIKey)
}

// URI returns the metadata URI of id.
func (tk *ERC1155) URI(t *ledger.Tx, id *big.Int) string {
	var u string
	t.Storage(tk.Addr).Get(ledger.Key(tokenURIPrefix, id.Bytes()), &u)
	return tk.BaseURI(t) + u
}

// SetBaseURI changes the prefix of token URIs.
func (tk *ERC1155) SetBaseURI(t *ledger.Tx, uri string) error {
	err := tk.OnlyOwner(t)
	if err != nil {
		return err
	}

	t.Storage(tk.Addr).Put(baseURIKey, uri)
	return nil
}

// TransferProxy returns the NFT transfer proxy trusted by the token.
func (tk *ERC1155) TransferProxy(t *ledger.Tx) common.Address {
	return t.Storage(tk.Addr).Address(transferProxyKey)
}

// LazyTransferProxy returns the lazy mint proxy trusted by the token.
func (tk *ERC1155) LazyTransferProxy(t *ledger.Tx) common.Address {
	return t.Storage(tk.Addr).Address(lazyProxyKey)
}

func (tk *ERC1155) isTrustedProxy(t *ledger.Tx, addr common.Address) bool {
	if addr == (common.Address{}) {
		return false
	}
	return addr == tk.TransferProxy(t) || addr == tk.LazyTransferProxy(t)
}

func (tk *ERC1155) balanceKey(holder common.Address, id *big.Int) []byte {
	return ledger.Key(balancePrefix, id.Bytes(), holder[:])
}

// BalanceOf returns the amount of id held by holder.
func (tk *ERC1155) BalanceOf(t *ledger.Tx, holder common.Address, id *big.Int) *big.Int {
	return t.Storage(tk.Addr).BigInt(tk.balanceKey(holder, id))
}

// BalanceOfBatch returns the balances of the (holder, id) pairs.
func (tk *ERC1155) BalanceOfBatch(t *ledger.Tx, holders []common.Address, ids []*big.Int) ([]*big.Int, error) {
	if len(holders) != len(ids) {
		return nil, ErrLengthMismatch
	}

	r := make([]*big.Int, len(ids))
	for i := range ids {
		r[i] = tk.BalanceOf(t, holders[i], ids[i])
	}
	return r, nil
}

// IsApprovedForAll reports whether operator may move every token of
// owner.
func (tk *ERC1155) IsApprovedForAll(t *ledger.Tx, owner, operator common.Address) bool {
	return t.Storage(tk.Addr).Bool(ledger.Key(approvalPrefix, owner[:], operator[:]))
}

// SetApprovalForAll approves or revokes operator for the sender.
func (tk *ERC1155) SetApprovalForAll(t *ledger.Tx, operator common.Address, approved bool) error {
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

// SafeTransferFrom moves amount of id from from to to.
func (tk *ERC1155) SafeTransferFrom(t *ledger.Tx, from, to common.Address, id, amount *big.Int, data []byte) error {
	err := tk.checkTransfer(t, from, to)
	if err != nil {
		return err
	}

	return tk.transfer(t, from, to, []*big.Int{id}, []*big.Int{amount})
}

// SafeBatchTransferFrom moves several ids at once. Every id is checked
// against the unlocked balance before anything moves.
func (tk *ERC1155) SafeBatchTransferFrom(t *ledger.Tx, from, to common.Address, ids, amounts []*big.Int, data []byte) error {
	err := tk.checkTransfer(t, from, to)
	if err != nil {
		return err
	}

	if len(ids) != len(amounts) {
		return ErrLengthMismatch
	}

	return tk.transfer(t, from, to, ids, amounts)
}

func (tk *ERC1155) checkTransfer(t *ledger.Tx, from, to common.Address) error {
	err := tk.Gate.Require(t, t.Sender(), from, to)
	if err != nil {
		return err
	}

	if t.Sender() != from && !tk.IsApprovedForAll(t, from, t.Sender()) {
		return ErrNotApproved
	}
	return nil
}

// unlocked returns the balance of holder minus its running locks.
func (tk *ERC1155) unlocked(t *ledger.Tx, holder common.Address, id *big.Int) *big.Int {
	locked, _ := tk.locks.amounts(t, holder, id)
	free := tk.BalanceOf(t, holder, id)
	free.Sub(free, locked)
	if free.Sign() < 0 {
		free.SetInt64(0)
	}
	return free
}

func (tk *ERC1155) transfer(t *ledger.Tx, from, to common.Address, ids, amounts []*big.Int) error {
	if to == (common.Address{}) {
		return ErrTransferToZero
	}

	need := make(map[string]*big.Int)
	for i, id := range ids {
		k := string(id.Bytes())
		if need[k] == nil {
			need[k] = new(big.Int)
		}
		need[k].Add(need[k], amounts[i])
		if need[k].Cmp(tk.unlocked(t, from, id)) > 0 {
			log.Warn("transfer of locked tokens rejected", "token", tk.Addr, "from", from, "id", id, "amount", need[k])
			return ErrNotEnoughUnlockedTokens
		}
	}

	st := t.Storage(tk.Addr)
	for i, id := range ids {
		fb := tk.BalanceOf(t, from, id)
		if fb.Cmp(amounts[i]) < 0 {
			return ErrInsufficientBalance
		}
		st.PutBigInt(tk.balanceKey(from, id), fb.Sub(fb, amounts[i]))
		tb := tk.BalanceOf(t, to, id)
		st.PutBigInt(tk.balanceKey(to, id), tb.Add(tb, amounts[i]))
	}

	if len(ids) == 1 {
		t.Emit(tk.Addr, "TransferSingle", TransferSingle{Operator: t.Sender(), From: from, To: to, ID: ids[0], Value: amounts[0]})
	} else {
		t.Emit(tk.Addr, "TransferBatch", TransferBatch{Operator: t.Sender(), From: from, To: to, IDs: ids, Values: amounts})
	}

	for _, id := range ids {
		tk.release(t, from, id)
	}

	if tk.isTrustedProxy(t, t.Sender()) {
		for i, id := range ids {
			tk.locks.lock(t, to, id, amounts[i])
		}
	}
	return nil
}

func (tk *ERC1155) release(t *ledger.Tx, holder common.Address, id *big.Int) {
	released := tk.locks.sweep(t, holder, id)
	if released.Sign() > 0 {
		t.Emit(tk.Addr, "Unlocked", Unlocked{Holder: holder, ID: new(big.Int).Set(id), Amount: released})
	}
}

// LockedAmount returns the amount of id of holder that is still
// locked.
func (tk *ERC1155) LockedAmount(t *ledger.Tx, holder common.Address, id *big.Int) *big.Int {
	locked, _ := tk.locks.amounts(t, holder, id)
	return locked
}

// UnlockableAmount returns the amount whose locks have expired but
// were not released yet.
func (tk *ERC1155) UnlockableAmount(t *ledger.Tx, holder common.Address, id *big.Int) *big.Int {
	_, unlockable := tk.locks.amounts(t, holder, id)
	return unlockable
}

// Unlock releases every expired lock of holder for id. It is a no-op
// when nothing has expired.
func (tk *ERC1155) Unlock(t *ledger.Tx, holder common.Address, id *big.Int) error {
	err := tk.Gate.Require(t, t.Sender(), holder)
	if err != nil {
		return err
	}

	tk.release(t, holder, id)
	return nil
}

// LocksInfo returns the lock sequence of holder for id.
func (tk *ERC1155) LocksInfo(t *ledger.Tx, holder common.Address, id *big.Int) LocksInfo {
	return tk.locks.info(t, holder, id)
}

// LockPeriod returns the duration of new locks in seconds.
func (tk *ERC1155) LockPeriod(t *ledger.Tx) uint64 {
	return tk.locks.period(t)
}

// SetLockPeriod changes the duration of locks created from now on.
func (tk *ERC1155) SetLockPeriod(t *ledger.Tx, period uint64) error {
	err := tk.OnlyOwner(t)
	if err != nil {
		return err
	}

	tk.locks.setPeriod(t, period)
	t.Emit(tk.Addr, "LockPeriodChanged", LockPeriodChanged{Period: period})
	return nil
}

// IsPartner reports whether addr may mint.
func (tk *ERC1155) IsPartner(t *ledger.Tx, addr common.Address) bool {
	return t.Storage(tk.Addr).Bool(ledger.Key(partnerPrefix, addr[:]))
}

func (tk *ERC1155) setPartner(t *ledger.Tx, addr common.Address, ok bool) {
	t.Storage(tk.Addr).PutBool(ledger.Key(partnerPrefix, addr[:]), ok)
	t.Emit(tk.Addr, "PartnerStatusChanged", PartnerStatusChanged{Partner: addr, Status: ok})
}

// AddPartner grants addr the right to mint.
func (tk *ERC1155) AddPartner(t *ledger.Tx, addr common.Address) error {
	err := tk.OnlyOwner(t)
	if err != nil {
		return err
	}

	tk.setPartner(t, addr, true)
	return nil
}

// RemovePartner revokes the right to mint.
func (tk *ERC1155) RemovePartner(t *ledger.Tx, addr common.Address) error {
	err := tk.OnlyOwner(t)
	if err != nil {
		return err
	}

	tk.setPartner(t, addr, false)
	return nil
}

// IsMinter reports whether addr may mint on behalf of creators.
func (tk *ERC1155) IsMinter(t *ledger.Tx, addr common.Address) bool {
	return t.Storage(tk.Addr).Bool(ledger.Key(minterPrefix, addr[:]))
}

// AddMinter grants addr the minter role.
func (tk *ERC1155) AddMinter(t *ledger.Tx, addr common.Address) error {
	return tk.setMinter(t, addr, true)
}

// RemoveMinter revokes the minter role.
func (tk *ERC1155) RemoveMinter(t *ledger.Tx, addr common.Address) error {
	return tk.setMinter(t, addr, false)
}

func (tk *ERC1155) setMinter(t *ledger.Tx, addr common.Address, ok bool) error {
	err := tk.OnlyOwner(t)
	if err != nil {
		return err
	}

	t.Storage(tk.Addr).PutBool(ledger.Key(minterPrefix, addr[:]), ok)
	t.Emit(tk.Addr, "MinterStatusChanged", MinterStatusChanged{Minter: addr, Status: ok})
	return nil
}

func (tk *ERC1155) onlyPartner(t *ledger.Tx) error {
	if tk.IsPartner(t, t.Sender()) || t.Sender() == tk.LazyTransferProxy(t) {
		return nil
	}
	return ErrNotPartner
}

// MintAndTransfer mints amount of the token described by data to to.
// The first creator must be the sender unless the sender is a minter.
func (tk *ERC1155) MintAndTransfer(t *ledger.Tx, data asset.MintData, to common.Address, amount *big.Int) error {
	err := tk.onlyPartner(t)
	if err != nil {
		return err
	}

	err = tk.Gate.Require(t, t.Sender(), to)
	if err != nil {
		return err
	}

	if len(data.Creators) == 0 {
		return ErrCreatorsShare
	}

	creator := data.Creators[0].Account
	if creator != t.Sender() && !tk.IsMinter(t, t.Sender()) && t.Sender() != tk.LazyTransferProxy(t) {
		return ErrNotCreator
	}

	return tk.mint(t, data, to, amount)
}

// TransferFromOrMint moves what from holds of the token and mints the
// rest on behalf of from, who must be its first creator. The lazy
// transfer proxy is approved for every holder.
func (tk *ERC1155) TransferFromOrMint(t *ledger.Tx, data asset.MintData, from, to common.Address, amount *big.Int) error {
	err := tk.onlyPartner(t)
	if err != nil {
		return err
	}

	err = tk.Gate.Require(t, t.Sender(), from, to)
	if err != nil {
		return err
	}

	s := t.Sender()
	if s != from && s != tk.LazyTransferProxy(t) && !tk.IsApprovedForAll(t, from, s) {
		return ErrNotApproved
	}

	left := new(big.Int).Set(amount)
	bal := tk.BalanceOf(t, from, data.TokenID)
	if bal.Sign() > 0 {
		move := bal
		if move.Cmp(amount) > 0 {
			move = new(big.Int).Set(amount)
		}

		err = tk.transfer(t, from, to, []*big.Int{data.TokenID}, []*big.Int{move})
		if err != nil {
			return err
		}
		left.Sub(left, move)
	}

	if left.Sign() == 0 {
		return nil
	}

	if len(data.Creators) == 0 || data.Creators[0].Account != from {
		return ErrNotCreator
	}
	return tk.mint(t, data, to, left)
}

func (tk *ERC1155) mint(t *ledger.Tx, data asset.MintData, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}

	if to == (common.Address{}) {
		return ErrTransferToZero
	}

	id := data.TokenID
	st := t.Storage(tk.Addr)
	supplyKey := ledger.Key(supplyPrefix, id.Bytes())
	supply := st.BigInt(supplyKey)
	if supply.Sign() == 0 {
		err := tk.register(t, data)
		if err != nil {
			return err
		}
		supply = data.Supply
	} else if data.Supply == nil || data.Supply.Cmp(supply) != 0 {
		return ErrSupplyMismatch
	}

	mintedKey := ledger.Key(mintedPrefix, id.Bytes())
	minted := st.BigInt(mintedKey)
	minted.Add(minted, amount)
	if minted.Cmp(supply) > 0 {
		return ErrSupplyExceeded
	}
	st.PutBigInt(mintedKey, minted)

	bal := tk.BalanceOf(t, to, id)
	st.PutBigInt(tk.balanceKey(to, id), bal.Add(bal, amount))
	t.Emit(tk.Addr, "TransferSingle", TransferSingle{Operator: t.Sender(), To: to, ID: id, Value: amount})

	if tk.isTrustedProxy(t, t.Sender()) {
		tk.locks.lock(t, to, id, amount)
	}
	return nil
}

// register stores the metadata of an id on its first mint.
func (tk *ERC1155) register(t *ledger.Tx, data asset.MintData) error {
	if data.Supply == nil || data.Supply.Sign() <= 0 {
		return ErrZeroSupply
	}

	var share uint64
	for _, c := range data.Creators {
		if c.Account == (common.Address{}) {
			return ErrZeroRecipient
		}
		share += c.Value
	}
	if share != 10000 {
		return ErrCreatorsShare
	}

	err := checkRoyalties(data.Royalties)
	if err != nil {
		return err
	}

	id := data.TokenID
	st := t.Storage(tk.Addr)
	st.PutBigInt(ledger.Key(supplyPrefix, id.Bytes()), data.Supply)
	st.Put(ledger.Key(creatorsPrefix, id.Bytes()), data.Creators)
	if data.TokenURI != "" {
		st.Put(ledger.Key(tokenURIPrefix, id.Bytes()), data.TokenURI)
	}
	t.Emit(tk.Addr, "Creators", Creators{ID: id, Creators: data.Creators})

	if len(data.Royalties) > 0 {
		st.Put(ledger.Key(royaltiesPrefix, id.Bytes()), data.Royalties)
		t.Emit(tk.Addr, "RoyaltiesSet", RoyaltiesSet{ID: id, Royalties: data.Royalties})
	}
	return nil
}

func checkRoyalties(parts []asset.Part) error {
	var total uint64
	for _, p := range parts {
		if p.Account == (common.Address{}) {
			return ErrZeroRecipient
		}
		if p.Value == 0 {
			return ErrZeroRoyalty
		}
		total += p.Value
	}

	if total >= 10000 {
		return ErrRoyaltiesTotal
	}
	return nil
}

// Supply returns the maximum supply of id, zero before the first
// mint.
func (tk *ERC1155) Supply(t *ledger.Tx, id *big.Int) *big.Int {
	return t.Storage(tk.Addr).BigInt(ledger.Key(supplyPrefix, id.Bytes()))
}

// Minted returns how much of id was minted so far.
func (tk *ERC1155) Minted(t *ledger.Tx, id *big.Int) *big.Int {
	return t.Storage(tk.Addr).BigInt(ledger.Key(mintedPrefix, id.Bytes()))
}

// Creators returns the creators of id.
func (tk *ERC1155) Creators(t *ledger.Tx, id *big.Int) []asset.Part {
	var parts []asset.Part
	t.Storage(tk.Addr).Get(ledger.Key(creatorsPrefix, id.Bytes()), &parts)
	return parts
}

// Royalties returns the royalties of id.
func (tk *ERC1155) Royalties(t *ledger.Tx, id *big.Int) []asset.Part {
	var parts []asset.Part
	t.Storage(tk.Addr).Get(ledger.Key(royaltiesPrefix, id.Bytes()), &parts)
	return parts
}

// UpdateAccount replaces from by to in the royalties of id. Only from
// itself or a whitelisted contract may do so.
func (tk *ERC1155) UpdateAccount(t *ledger.Tx, id *big.Int, from, to common.Address) error {
	err := tk.Gate.Require(t, t.Sender())
	if err != nil {
		return err
	}

	if t.Sender() != from && !t.IsContract(t.Sender()) {
		return ErrNotAllowed
	}

	parts := tk.Royalties(t, id)
	changed := false
	for i := range parts {
		if parts[i].Account == from {
			parts[i].Account = to
			changed = true
		}
	}

	if !changed {
		return nil
	}

	t.Storage(tk.Addr).Put(ledger.Key(royaltiesPrefix, id.Bytes()), parts)
	t.Emit(tk.Addr, "RoyaltiesSet", RoyaltiesSet{ID: id, Royalties: parts})
	return nil
}
