// Package ofx converts OFX/QFX bank and credit card statements into ledger
// channels and transactions.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// channelNamespace roots the deterministic channel IDs derived from OFX
// account numbers, so re-importing a statement maps to the same channel.
var channelNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("books:ofx:channel"))

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Import is the content of one statement file.
type Import struct {
	Channels     []model.Channel
	Transactions []model.Transaction
}

// Parser implements OFX/QFX file parsing.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new OFX parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML-style files sometimes drop the closing bracket of a bare opening tag.
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX file into channels and signed transactions.
// Amounts keep the OFX convention: negative is money leaving the account.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) (*Import, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	imp := &Import{}
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		bankStmts++
		ch := bankChannel(stmt)
		imp.Channels = append(imp.Channels, ch)
		if stmt.BankTranList != nil {
			for _, ofxTx := range stmt.BankTranList.Transactions {
				imp.Transactions = append(imp.Transactions, p.convertTransaction(ofxTx, ch.ID, stmt.CurDef.String()))
			}
		}
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		ccStmts++
		ch := cardChannel(stmt)
		imp.Channels = append(imp.Channels, ch)
		if stmt.BankTranList != nil {
			for _, ofxTx := range stmt.BankTranList.Transactions {
				imp.Transactions = append(imp.Transactions, p.convertTransaction(ofxTx, ch.ID, stmt.CurDef.String()))
			}
		}
	}

	p.logger.Info("Parsed OFX file",
		"total_transactions", len(imp.Transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return imp, nil
}

// ChannelID derives the channel ID for an OFX account.
func ChannelID(bankID, accountID string) string {
	return uuid.NewSHA1(channelNamespace, []byte(bankID+"/"+accountID)).String()
}

func bankChannel(stmt *ofxgo.StatementResponse) model.Channel {
	acct := string(stmt.BankAcctFrom.AcctID)
	kind := stmt.BankAcctFrom.AcctType.String()
	category := model.ChannelBank
	if kind == "CREDITLINE" {
		category = model.ChannelOther
	}
	return model.Channel{
		ID:       ChannelID(string(stmt.BankAcctFrom.BankID), acct),
		Name:     fmt.Sprintf("%s %s", titleCase(kind), maskAccount(acct)),
		Category: category,
		Metadata: map[string]string{"ofxAccountType": kind},
	}
}

func cardChannel(stmt *ofxgo.CCStatementResponse) model.Channel {
	acct := string(stmt.CCAcctFrom.AcctID)
	return model.Channel{
		ID:       ChannelID("", acct),
		Name:     "Card " + maskAccount(acct),
		Category: model.ChannelCard,
	}
}

// convertTransaction converts an OFX transaction to our model. FITIDs are
// only unique within an account, so the ID is meaningful together with
// channelID.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, channelID, currency string) model.Transaction {
	tx := model.Transaction{
		ID:          string(ofxTx.FiTID),
		ChannelID:   channelID,
		Description: p.extractMerchantName(ofxTx),
		Amount:      decimal.NewFromBigRat(&ofxTx.TrnAmt.Rat, 2),
		Type:        ofxTx.TrnType.String(),
		Raw: map[string]string{
			"fitid":    string(ofxTx.FiTID),
			"name":     string(ofxTx.Name),
			"memo":     string(ofxTx.Memo),
			"trntype":  ofxTx.TrnType.String(),
			"currency": currency,
		},
	}
	if !ofxTx.DtPosted.IsZero() {
		posted := ofxTx.DtPosted.UTC()
		tx.Date = &posted
	}
	if ofxTx.CheckNum != "" {
		tx.Raw["checknum"] = string(ofxTx.CheckNum)
	}
	if ofxTx.Payee != nil && ofxTx.Payee.Name != "" {
		tx.Raw["counterparty"] = string(ofxTx.Payee.Name)
	}

	switch tx.Type {
	case "INT", "DIV":
		tx.Category = "Interest"
	case "FEE", "SRVCHG":
		tx.Category = "Bank Fees"
	case "ATM":
		tx.Category = "Cash & ATM"
	}

	if tx.ID == "" {
		when := "undated"
		if tx.Date != nil {
			when = tx.Date.String()
		}
		tx.ID = uuid.NewSHA1(channelNamespace, []byte(strings.Join([]string{channelID, when, tx.Amount.String(), tx.Raw["name"]}, "|"))).String()
		p.logger.Debug("OFX transaction has no FITID", "generated_id", tx.ID)
	}

	tx.Hash = tx.GenerateHash()
	return tx
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)

	// MEMO often carries the real merchant when NAME is generic.
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}

	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " dates.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

func maskAccount(acct string) string {
	if len(acct) <= 4 {
		return acct
	}
	return "••" + acct[len(acct)-4:]
}

func titleCase(s string) string {
	if s == "" {
		return "Account"
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
