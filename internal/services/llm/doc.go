// Package llm provides an OpenRouter-compatible chat client used to translate
// timeline captions.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive a JSON response.
// Client.Translate: translate caption text into a language.Tag.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions and
// network timeouts with exponential backoff, honouring Retry-After.
// Context cancellation aborts retries immediately.
package llm
