// Package main provides the entry point for the GoAuthCore service. It
// initializes and runs a web server using the Fiber framework that exposes
// registration, login, per-device session management, role administration,
// permission management and multi-provider OAuth account linking through a
// JSON API. The application uses gorm for data persistence and supports
// MySQL, PostgreSQL and SQLite backends.
package main
