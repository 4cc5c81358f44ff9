// Package model contains the provider adapters that implement core.Capability
// on top of vendor SDKs, plus the helpers they share.
//
// Core goals:
//   - Keep the tool calling loop uniform across providers: call the model,
//     execute requested functions, feed results back, repeat until the model
//     answers in plain text
//   - Surface every function call, result and answer chunk through the
//     core.ActivityListener synchronously and in order
//   - Render function failures as result text so a broken retrieval never
//     aborts the turn
//
// Providers (OpenAI, Anthropic) live in subpackages so higher layers depend
// only on core.Capability and stay decoupled from vendor SDKs.
package model
