package parser

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yurifrl/ynab-reconciler/pkg/models"
)

var bankNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ynab-reconciler/bank-transaction"))

// TransactionID derives a stable id from a statement row. Parsing the same
// statement twice yields the same ids.
func TransactionID(ordinal int, txn models.BankTransaction) string {
	input := fmt.Sprintf("%d|%s|%d|%s", ordinal, txn.DateString(), txn.Amount, strings.ToLower(strings.TrimSpace(txn.Payee)))
	return uuid.NewSHA1(bankNamespace, []byte(input)).String()
}

func assignIDs(txns []models.BankTransaction) {
	for i := range txns {
		txns[i].ID = TransactionID(i, txns[i])
	}
}
