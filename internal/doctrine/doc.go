// Package doctrine compiles CUE doctrine files into rule sets.
//
// Doctrine files declare, per entity kind, the fields a record must carry
// before it may be promoted to master:
//
//	doctrine: company: {
//		required: ["name", "industry", "country"]
//		allowed: country: ["US", "GB", "DE"]
//	}
//
// Compilation happens once at run start; the result is a pure
// rules.Evaluator per kind. Uses the CUE SDK's Go API directly
// (not a CLI subprocess).
package doctrine
