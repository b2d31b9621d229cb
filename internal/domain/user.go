package domain

// User aggregates per-address activity counters. An address gets a record
// the first time it acts as a desk owner, borrower or lender; the issued
// counters track the lender side, the taken counters the borrower side.
type User struct {
	ID string // wallet address, lowercase hex

	LoansIssuedCount          int64
	LoansIssuedResolvedCount  int64
	LoansIssuedDefaultedCount int64
	LoansTakenCount           int64
	LoansTakenResolvedCount   int64
	LoansTakenDefaultedCount  int64
}
