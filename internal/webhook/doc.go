// Package webhook ingests signed message deliveries exactly once.
//
// # Pipeline
//
//  1. Body read with a size cap (413 when exceeded)
//  2. HMAC-SHA256 of the raw body checked against the signature header in
//     constant time (401 on mismatch, nothing else is looked at)
//  3. Body parsed and validated (422 with per-field details)
//  4. Message inserted if its message_id is new (200 either way; a repeated
//     delivery reports "duplicate": true)
//  5. Storage failures answer 503 with Retry-After; nothing was written, so
//     the sender can retry safely
//
// Every delivery increments webhook_requests_total exactly once with its
// terminal outcome: stored, deduplicated, rejected_bad_signature,
// rejected_bad_payload or storage_error.
//
// # Signing a request
//
//	body='{"message_id":"m1","from":"+919876543210","to":"+14155550100","ts":"2025-01-15T10:00:00Z","text":"Hello"}'
//	sig=$(inlet sign --secret "$WEBHOOK_SECRET" --body "$body")
//	curl -H "X-Signature: $sig" -d "$body" http://localhost:8000/webhook
package webhook
