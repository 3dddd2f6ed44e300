// Package render formats partcast results for the terminal, as styled tables,
// or as indented JSON.
package render
