// Package models defines the core domain models for Pledgeboard.
//
// # Deals
//
// Two kinds of deal collect money from supporters:
//   - Thread: a creator commits to do something once pledges reach a target
//     amount before a deadline.
//   - ReverseRequest: a creator asks for something to be done, bidders name
//     their price and the request closes as soon as pledges cover the lowest
//     active ask.
//
// Once a deal is settled the engine writes a DealLock and one LedgerEntry per
// pledge. Ledger entries only record who owes whom; no money moves here.
//
// # Design Principles
//
// 1. **No cached totals**: pledged totals and statuses are always derived from
// the pledge and bid rows (see internal/calculator).
// 2. **IDs, not pointers**: relationships use ID strings.
// 3. **Money is decimal**: amounts use shopspring/decimal, never float64.
package models
