// Package ir provides the shared data types for refguard.
//
// This package contains type definitions and their canonical encodings only.
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Order is significant everywhere: references, rules and violation paths
//     keep declaration order end to end.
//   - All JSON tags use snake_case.
//   - Logical sequence numbers only, never wall-clock timestamps.
package ir
