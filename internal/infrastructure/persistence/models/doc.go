// Package models contains GORM-specific persistence models that map to database tables.
// They are kept apart from the domain entities so that column types, indexes and
// table names never leak into the finance domain.
//
// Structure:
// - base.go: shared columns of tenant-scoped aggregates
// - finance.go: quotes, invoices and their line items
// - ledger.go: payments and credit notes
// - reconciliation.go: bank accounts and bank transactions
// - audit.go: audit entries and document sequences
// - party.go: the customer and team rows referenced by documents
package models
