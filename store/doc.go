// Package store provides SessionStore backends for the consumer package:
// an in-memory store for tests and single-process deployments, and a Redis
// store for anything that needs sessions to survive a process or be shared
// across instances.
package store
