// Package models contains GORM persistence models that map to database tables.
// Domain aggregates stay free of ORM tags; each model converts to and from its
// aggregate with ToDomain / FromDomain.
//
// Files follow the bounded contexts: identity, branch, business, catalog,
// inventory, sales, customer, finance, notification and billing.
package models
