package engine

import (
	"regexp"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
)

// polarityMarker matches a leading bracketed sign such as "[-] 결제" or "(+)입금".
var polarityMarker = regexp.MustCompile(`^\s*[\[(]\s*([+-])\s*[\])]`)

// DirectionFields lists the raw source fields that may carry a polarity
// marker, in the order they are consulted after the transaction type.
var DirectionFields = []string{"direction", "type", "구분", "입출금구분", "거래구분"}

// SignFix records one amount whose sign was corrected.
type SignFix struct {
	ChannelID     string
	TransactionID string
	From          decimal.Decimal
	To            decimal.Decimal
}

// PolarityHint returns the sign (+1 or -1) declared by the first polarity
// marker found in the transaction's type text or direction fields.
func PolarityHint(txn model.Transaction) (int, bool) {
	if sign, ok := markerSign(txn.Type); ok {
		return sign, true
	}
	for _, field := range DirectionFields {
		if sign, ok := markerSign(txn.Raw[field]); ok {
			return sign, true
		}
	}
	return 0, false
}

func markerSign(text string) (int, bool) {
	m := polarityMarker.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	if m[1] == "-" {
		return -1, true
	}
	return 1, true
}

// NormalizeSign returns the amount with its sign forced to agree with the
// transaction's polarity marker. The magnitude never changes, and a
// transaction without a marker keeps its amount. Applying it to its own
// output is a no-op.
func NormalizeSign(txn model.Transaction) (decimal.Decimal, bool) {
	sign, ok := PolarityHint(txn)
	if !ok || txn.Amount.IsZero() || txn.Amount.Sign() == sign {
		return txn.Amount, false
	}
	return txn.Amount.Abs().Mul(decimal.NewFromInt(int64(sign))), true
}

// NormalizeAll applies NormalizeSign to every transaction in place and
// returns the corrections made, in input order.
func NormalizeAll(txns []model.Transaction) []SignFix {
	var fixes []SignFix
	for i := range txns {
		fixed, changed := NormalizeSign(txns[i])
		if !changed {
			continue
		}
		fixes = append(fixes, SignFix{
			ChannelID:     txns[i].ChannelID,
			TransactionID: txns[i].ID,
			From:          txns[i].Amount,
			To:            fixed,
		})
		txns[i].Amount = fixed
	}
	return fixes
}
