// Package password hashes and verifies credentials with bcrypt.
package password
