// Package vault implements the accounting core of the liquid-restaking vault:
// share/asset conversion, the two-system withdrawal ledger, and the point and
// reward accrual engines layered on share balances. External collaborators (the
// collateral token, the strategy venue, the custodian withdrawal queue and the
// reward token) are consumed through narrow interfaces and never reimplemented
// here.
package vault
