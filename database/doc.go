// Package database manages the bun connection for mysql, postgres and sqlite,
// bootstraps the team and member tables, adds foreign keys, runs SQL seed
// files and reports health. It also provides the query logging hooks.
package database
