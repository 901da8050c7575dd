// Package model defines the wire types shared across qrev: the PR diff
// document consumed from the source-control side, and the normalized
// findings report produced for downstream consumers.
package model
