package matcher

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yurifrl/ynab-reconciler/pkg/models"
	"github.com/yurifrl/ynab-reconciler/pkg/payee"
)

type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
	None   Confidence = "none"
)

// ActionAddToYNAB marks a bank transaction with no ledger counterpart.
const ActionAddToYNAB = "add_to_ynab"

const maxCandidates = 3

const (
	dateWeight   = 40.0
	amountWeight = 50.0
	payeeWeight  = 10.0
	payeeContain = 7.0
)

type MatchCandidate struct {
	LedgerTransaction models.LedgerTransaction `json:"ledger_transaction"`
	ConfidenceScore   int                      `json:"confidence_score"`
	MatchReason       string                   `json:"match_reason"`
	Explanation       string                   `json:"explanation"`
}

// TransactionMatch is the outcome of matching one bank transaction.
// LedgerTransaction is set only for High confidence; Candidates only for
// Medium and Low.
type TransactionMatch struct {
	BankTransaction   models.BankTransaction    `json:"bank_transaction"`
	LedgerTransaction *models.LedgerTransaction `json:"ledger_transaction,omitempty"`
	Candidates        []MatchCandidate          `json:"candidates,omitempty"`
	Confidence        Confidence                `json:"confidence"`
	ConfidenceScore   int                       `json:"confidence_score"`
	MatchReason       string                    `json:"match_reason"`
	ActionHint        string                    `json:"action_hint,omitempty"`
}

// TopCandidate returns the best ranked candidate, if any.
func (m TransactionMatch) TopCandidate() (MatchCandidate, bool) {
	if len(m.Candidates) == 0 {
		return MatchCandidate{}, false
	}
	return m.Candidates[0], true
}

// UsedIDs is the set of ledger transaction ids already claimed in a run.
type UsedIDs map[string]struct{}

func (u UsedIDs) Has(id string) bool {
	_, ok := u[id]
	return ok
}

func (u UsedIDs) Add(id string) {
	u[id] = struct{}{}
}

type scored struct {
	ledger      models.LedgerTransaction
	index       int
	score       int
	dateDiff    int
	reason      string
	explanation string
}

// FindMatches matches bank transactions in order. A ledger transaction
// claimed by a high confidence match is not offered to later rows.
func FindMatches(bank []models.BankTransaction, ledger []models.LedgerTransaction, cfg Config) []TransactionMatch {
	used := UsedIDs{}
	matches := make([]TransactionMatch, 0, len(bank))
	for _, b := range bank {
		m := FindBestMatch(b, ledger, used, cfg)
		if m.Confidence == High {
			used.Add(m.LedgerTransaction.ID)
		}
		matches = append(matches, m)
	}
	return matches
}

// FindBestMatch scores every eligible ledger transaction against b. It does
// not modify used.
func FindBestMatch(b models.BankTransaction, ledger []models.LedgerTransaction, used UsedIDs, cfg Config) TransactionMatch {
	candidates := score(b, ledger, used, cfg)
	if len(candidates) == 0 {
		return TransactionMatch{
			BankTransaction: b,
			Confidence:      None,
			MatchReason:     "no ledger transaction with this amount near this date",
			ActionHint:      ActionAddToYNAB,
		}
	}

	rank(candidates, cfg)
	best := candidates[0]
	m := TransactionMatch{
		BankTransaction: b,
		ConfidenceScore: best.score,
		MatchReason:     best.reason,
	}

	m.Confidence = cfg.tier(best.score)
	if m.Confidence == High {
		lt := best.ledger
		m.LedgerTransaction = &lt
	} else {
		m.Candidates = toCandidates(candidates)
	}
	return m
}

func score(b models.BankTransaction, ledger []models.LedgerTransaction, used UsedIDs, cfg Config) []scored {
	tolerance := cfg.AmountTolerance()
	var out []scored
	for i, lt := range ledger {
		if lt.Deleted || used.Has(lt.ID) {
			continue
		}
		if b.Amount.Sign() != lt.Amount.Sign() {
			continue
		}
		amountDiff := (b.Amount - lt.Amount).Abs()
		if amountDiff > tolerance {
			continue
		}
		dateDiff := models.DaysBetween(b.Date, lt.Date)
		if dateDiff > cfg.DateToleranceDays {
			continue
		}

		dateScore := dateWeight
		if cfg.DateToleranceDays > 0 {
			dateScore -= (dateWeight / 2) * float64(dateDiff) / float64(cfg.DateToleranceDays)
		}
		amountScore := amountWeight
		if tolerance > 0 {
			amountScore -= (amountWeight / 2) * float64(amountDiff) / float64(tolerance)
		}
		payeeScore, payeeReason := payeeComponent(b, lt)

		total := int(math.Round(dateScore + amountScore + payeeScore))
		if payeeScore < payeeContain && total >= cfg.AutoMatchThreshold {
			total = cfg.AutoMatchThreshold - 1
		}

		out = append(out, scored{
			ledger:      lt,
			index:       i,
			score:       total,
			dateDiff:    dateDiff,
			reason:      reason(amountDiff == 0, dateDiff, payeeReason),
			explanation: explain(b, lt, amountDiff == 0, dateDiff, payeeReason),
		})
	}
	return out
}

func payeeComponent(b models.BankTransaction, lt models.LedgerTransaction) (float64, string) {
	ledgerPayee := lt.Payee()
	if payee.NormalizedMatch(b.Payee, ledgerPayee) {
		return payeeWeight, "payee match"
	}
	for _, bank := range []string{b.Payee, b.Memo} {
		for _, led := range []string{ledgerPayee, lt.MemoText()} {
			if payee.Contains(bank, led) || payee.Contains(led, bank) {
				return payeeContain, "payee contains"
			}
		}
	}
	similarity := payee.Similarity(b.Payee, ledgerPayee)
	if similarity <= 0 {
		return 0, ""
	}
	return math.Floor(similarity / 20), fmt.Sprintf("payee %.0f%% similar", similarity)
}

// rank orders candidates best first. Candidates within the tie band of the top
// score and in its confidence tier prefer uncleared, then the closer date, then
// the higher score.
func rank(c []scored, cfg Config) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].score != c[j].score {
			return c[i].score > c[j].score
		}
		return c[i].index < c[j].index
	})
	top := c[0].score
	n := 0
	for n < len(c) && c[n].score >= top-cfg.TieBand && cfg.tier(c[n].score) == cfg.tier(top) {
		n++
	}
	contenders := c[:n]
	sort.SliceStable(contenders, func(i, j int) bool {
		a, b := contenders[i], contenders[j]
		if ua, ub := !a.ledger.Cleared.IsCleared(), !b.ledger.Cleared.IsCleared(); ua != ub {
			return ua
		}
		if a.dateDiff != b.dateDiff {
			return a.dateDiff < b.dateDiff
		}
		if a.score != b.score {
			return a.score > b.score
		}
		return a.index < b.index
	})
}

func toCandidates(c []scored) []MatchCandidate {
	n := len(c)
	if n > maxCandidates {
		n = maxCandidates
	}
	out := make([]MatchCandidate, 0, n)
	for _, s := range c[:n] {
		out = append(out, MatchCandidate{
			LedgerTransaction: s.ledger,
			ConfidenceScore:   s.score,
			MatchReason:       s.reason,
			Explanation:       s.explanation,
		})
	}
	return out
}

func reason(exactAmount bool, dateDiff int, payeeReason string) string {
	parts := []string{"amount within tolerance"}
	if exactAmount {
		parts[0] = "exact amount"
	}
	if dateDiff == 0 {
		parts = append(parts, "same date")
	} else {
		parts = append(parts, fmt.Sprintf("%d day(s) apart", dateDiff))
	}
	if payeeReason != "" {
		parts = append(parts, payeeReason)
	}
	return strings.Join(parts, ", ")
}

func explain(b models.BankTransaction, lt models.LedgerTransaction, exactAmount bool, dateDiff int, payeeReason string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bank %s %s %q vs ledger %s %s %q",
		b.DateString(), b.Amount.Display("$"), b.Payee,
		lt.DateString(), lt.Amount.Display("$"), lt.Payee())
	if !exactAmount {
		fmt.Fprintf(&sb, "; amounts differ by %s", (b.Amount - lt.Amount).Abs().Display("$"))
	}
	if dateDiff > 0 {
		fmt.Fprintf(&sb, "; dates %d day(s) apart", dateDiff)
	}
	if payeeReason == "" {
		sb.WriteString("; payees do not match")
	}
	if lt.Cleared.IsCleared() {
		fmt.Fprintf(&sb, "; ledger side already %s", lt.Cleared)
	}
	return sb.String()
}
