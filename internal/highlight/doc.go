// Package highlight detects highlight moments in a match's kill events.
//
// Detection is pure and deterministic: kills are grouped by round and killer,
// multi-kills (quadra, ace) and weapon streaks (sniper, pistol) are emitted
// independently, and the result is ordered so identical kill sets always
// produce identical highlight lists regardless of input order.
package highlight
