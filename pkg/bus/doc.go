// Package bus provides the half-duplex transceiver of the RS4Brick bus.
package bus

// All nodes share a single RS-485 pair. A node listens by default and only
// enables its line driver for the duration of a frame. While the driver is
// enabled the node cannot hear the bus: anything another node sends at the
// same time is lost. There is no collision detection.
//
// Poll never blocks longer than the port read timeout, so a host loop can
// interleave bus reception with other work.
