// Package frame provides the text frame codec of the RS4Brick bus.
package frame

// A frame is a line of printable ASCII terminated by a single newline.
// There is no escaping and no integrity field: content must never contain
// the delimiter, which New enforces when a frame is built locally.
// Frames received from the bus go through Decode, which trims surrounding
// whitespace and drops frames left empty.
