// Package history records orchestration outcomes.
//
// Every orchestration appends one Entry per execution result. Stores are
// capped: once Capacity entries are held, the oldest entries are dropped
// first. Two implementations are provided:
//
//   - InMemoryStore: process local ring, the default
//   - RedisStore: a JSON list in Redis trimmed to capacity, suitable when
//     several server replicas should share history
package history
