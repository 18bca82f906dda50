// Package props loads the input props and environment variables handed to
// a bundle before any of its code runs.
//
// Props come inline as JSON or from a .json, .yaml, .yml or .toml file and
// must decode to an object no larger than MaxSize and no deeper than
// MaxDepth. Environment variables are the REMOTION_-prefixed
// process variables overlaid by an optional dotenv file.
package props
