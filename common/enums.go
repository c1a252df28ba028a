// Package common keeps enums shared by configuration and command line
// handling, so neither has to import the other.
package common

//go:generate go tool go-enum --marshal --names

// Requested output encoding.
// ENUM(text, pretty, binary)
type OutputFormat int

// Ext returns file name extension for the encoding.
func (o OutputFormat) Ext() string {
	switch o {
	case OutputFormatText, OutputFormatPretty:
		return ".ion"
	case OutputFormatBinary:
		return ".10n"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}

// IsBinary reports binary Ion output.
func (o OutputFormat) IsBinary() bool {
	return o == OutputFormatBinary
}
