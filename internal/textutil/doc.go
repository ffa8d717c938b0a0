// Package textutil provides the text normalization used when comparing name
// usages across releases.
//
// The primary use cases are:
//   - Folding authorships and name phrases to letters and digits so
//     punctuation, spacing, case and diacritic differences do not count
//   - Flattening values into single-line columns for the audit listings
package textutil
