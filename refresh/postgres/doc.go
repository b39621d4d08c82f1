// Package postgres persists refresh tokens in PostgreSQL through pgx.
// Rotation atomicity comes from a conditional UPDATE ... WHERE revoked =
// FALSE RETURNING, so concurrent rotations of one value resolve to a
// single winner inside the database.
package postgres
