// Package protocol owns the ascmd reply records and their wire decoding.
//
// Ownership boundary:
// - frame: tag/length/value framing
// - tlv: zstr/u32/u64 field values
// - schema: tag tables
// - protocol: typed records, Dispatch, agent-side encoders
// - command: request line encoding
// - session: request/response discipline and version negotiation
package protocol
