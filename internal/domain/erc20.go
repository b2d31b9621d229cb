package domain

// Erc20 is the metadata record for a desk funding currency. It is created
// lazily the first time a lending desk references the token; name, symbol
// and decimals are read from the contract once and are immutable after that.
type Erc20 struct {
	ID       string // token contract address, lowercase hex
	Name     string
	Symbol   string
	Decimals uint8
}

// NftCollection is the registry record for an NFT contract accepted as
// collateral. Created lazily on the first loan config that references it.
// ActiveLoanConfigsCount mirrors the number of loan configs with
// Active == true pointing at this collection and must never go negative.
type NftCollection struct {
	ID                     string // collection contract address, lowercase hex
	IsErc1155              bool
	ActiveLoanConfigsCount int64
}
