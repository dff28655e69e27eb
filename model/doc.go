// Package model defines the provider‑agnostic abstractions and concrete
// helpers for interacting with language models inside docmesh.
//
// Core goals:
//   - Keep request/response shapes minimal and transport independent
//   - Report token usage so callers can attribute cost to a run context
//   - Guard provider quotas with rate limiting and a call budget (Limited)
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface from this
// package so agents remain decoupled from vendor SDKs.
package model
