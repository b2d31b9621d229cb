package postgres

import (
	"fmt"
	"math/big"
)

// Wei-scale amounts are stored as NUMERIC(78,0) and travel as decimal
// strings: queries cast the column to text and params are sent as the
// big.Int's decimal form.

func bigToNumeric(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return x.String()
}

func numericToBig(s string) (*big.Int, error) {
	x, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("postgres: malformed numeric %q", s)
	}
	return x, nil
}
