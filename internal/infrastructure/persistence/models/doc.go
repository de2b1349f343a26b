// Package models holds the gorm rows behind the ledger tables: receipts,
// receipt lines, payments and allocations. Domain types carry no gorm tags;
// each row converts to and from its domain type with ToDomain and
// FromDomain, and the repositories only ever read and write rows.
package models
