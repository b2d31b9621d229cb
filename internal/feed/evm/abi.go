package evm

// Event fragments of the lending contract, trimmed to the events the
// projection consumes. Function entries are omitted on purpose; only log
// decoding happens here.
const lendingABI = `[
	{"type":"event","name":"OwnershipTransferred","inputs":[
		{"name":"previousOwner","type":"address","indexed":true},
		{"name":"newOwner","type":"address","indexed":true}]},
	{"type":"event","name":"Paused","inputs":[
		{"name":"account","type":"address","indexed":false}]},
	{"type":"event","name":"Unpaused","inputs":[
		{"name":"account","type":"address","indexed":false}]},
	{"type":"event","name":"LoanOriginationFeeSet","inputs":[
		{"name":"loanOriginationFee","type":"uint256","indexed":false}]},
	{"type":"event","name":"PlatformWalletSet","inputs":[
		{"name":"platformWallet","type":"address","indexed":false}]},
	{"type":"event","name":"NewLendingDeskInitialized","inputs":[
		{"name":"lendingDeskId","type":"uint256","indexed":false},
		{"name":"owner","type":"address","indexed":false},
		{"name":"erc20","type":"address","indexed":false},
		{"name":"initialBalance","type":"uint256","indexed":false},
		{"name":"loanConfigs","type":"tuple[]","indexed":false,"components":[
			{"name":"nftCollection","type":"address"},
			{"name":"nftCollectionIsErc1155","type":"bool"},
			{"name":"minAmount","type":"uint256"},
			{"name":"maxAmount","type":"uint256"},
			{"name":"minDuration","type":"uint32"},
			{"name":"maxDuration","type":"uint32"},
			{"name":"minInterest","type":"uint32"},
			{"name":"maxInterest","type":"uint32"}]}]},
	{"type":"event","name":"LendingDeskLoanConfigsSet","inputs":[
		{"name":"lendingDeskId","type":"uint256","indexed":false},
		{"name":"loanConfigs","type":"tuple[]","indexed":false,"components":[
			{"name":"nftCollection","type":"address"},
			{"name":"nftCollectionIsErc1155","type":"bool"},
			{"name":"minAmount","type":"uint256"},
			{"name":"maxAmount","type":"uint256"},
			{"name":"minDuration","type":"uint32"},
			{"name":"maxDuration","type":"uint32"},
			{"name":"minInterest","type":"uint32"},
			{"name":"maxInterest","type":"uint32"}]}]},
	{"type":"event","name":"LendingDeskLoanConfigRemoved","inputs":[
		{"name":"lendingDeskId","type":"uint256","indexed":false},
		{"name":"nftCollection","type":"address","indexed":false}]},
	{"type":"event","name":"LendingDeskLiquidityDeposited","inputs":[
		{"name":"lendingDeskId","type":"uint256","indexed":false},
		{"name":"amountDeposited","type":"uint256","indexed":false}]},
	{"type":"event","name":"LendingDeskLiquidityWithdrawn","inputs":[
		{"name":"lendingDeskId","type":"uint256","indexed":false},
		{"name":"amountWithdrawn","type":"uint256","indexed":false}]},
	{"type":"event","name":"LendingDeskStateSet","inputs":[
		{"name":"lendingDeskId","type":"uint256","indexed":false},
		{"name":"freeze","type":"bool","indexed":false}]},
	{"type":"event","name":"LendingDeskDissolved","inputs":[
		{"name":"lendingDeskId","type":"uint256","indexed":false}]},
	{"type":"event","name":"NewLoanInitialized","inputs":[
		{"name":"lendingDeskId","type":"uint256","indexed":false},
		{"name":"loanId","type":"uint256","indexed":false},
		{"name":"borrower","type":"address","indexed":false},
		{"name":"nftCollection","type":"address","indexed":false},
		{"name":"nftId","type":"uint256","indexed":false},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"duration","type":"uint256","indexed":false},
		{"name":"interest","type":"uint256","indexed":false},
		{"name":"platformFee","type":"uint256","indexed":false}]},
	{"type":"event","name":"LoanPaymentMade","inputs":[
		{"name":"loanId","type":"uint256","indexed":false},
		{"name":"amountPaid","type":"uint256","indexed":false},
		{"name":"resolved","type":"bool","indexed":false}]},
	{"type":"event","name":"DefaultedLoanLiquidated","inputs":[
		{"name":"loanId","type":"uint256","indexed":false}]}
]`

// ERC-721 Transfer with all three parameters indexed, as emitted by the
// lending key and note contracts.
const erc721ABI = `[
	{"type":"event","name":"Transfer","inputs":[
		{"name":"from","type":"address","indexed":true},
		{"name":"to","type":"address","indexed":true},
		{"name":"tokenId","type":"uint256","indexed":true}]}
]`
