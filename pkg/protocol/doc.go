// Package protocol implements RS4Brick discovery and identification.
package protocol

// One master shares the bus with any number of slaves:
//
//	master -> all    WHO               broadcast discovery
//	slave  -> master UUID:<id>         discovery reply
//	master -> all    IDENTIFY:<id>     targeted capability request
//	slave  -> master {"uuid":...}      capability descriptor reply
//
// Slaves never speak unless asked, and a slave not addressed by IDENTIFY
// stays silent. Replies carry no request identifier, so the master keeps
// at most one request outstanding and correlates replies by content.
//
// Both roles are driven by Tick: one call polls the bus, handles every
// complete frame and returns. Nothing runs in the background.
