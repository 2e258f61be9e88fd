// Package record defines the persisted shadow of a composition: cases,
// repository files and artifact entries, plus the config_json payload that
// carries variant-specific fields.
//
// This package contains types and encoding only. bundle and store import
// record; record imports nothing internal.
//
// Key design constraints:
//   - sequence_order is written only by the persistence adapter
//   - config_json is canonical JSON (sorted keys, NFC strings) so that equal
//     payloads compare byte-equal
//   - All JSON tags use snake_case
package record
