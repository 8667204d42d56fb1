// Package classify maps errors to a retry-oriented taxonomy: permanent,
// transient, or unknown.
//
// Classification is text based: the error message and its formatted cause
// chain are matched against ordered pattern sets. Permanent patterns are
// tested first and always win, because "retrying cannot help" must override
// an availability-biased transient signal. Unmatched errors classify as
// unknown, which retry loops treat as retry-eligible.
package classify
