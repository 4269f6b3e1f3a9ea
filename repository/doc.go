// Package repository provides a generic bun repository plus the member and
// team repositories: predicate-composed searches, DTO projections over the
// member/team join, paging with a deferred count query, subqueries and bulk
// statements.
package repository
