// Package httpapi provides ready-made net/http handlers for the auth
// endpoints: login, refresh, logout, and logout-all. Token pairs are
// returned both as HttpOnly cookies and in the JSON body, so browser and
// non-browser clients use the same endpoints.
package httpapi
