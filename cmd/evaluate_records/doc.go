// Package main evaluates prediction records decoded elsewhere. It reads a
// JSON-lines file of {"pred", "gold", "confidence"} objects, prints accuracy
// and curve areas, and writes the precision-yield curve.
package main
