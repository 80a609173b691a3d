// Package caps defines the capability descriptor a slave announces.
//
// A descriptor lists the methods a device accepts and its typed
// properties. It is fixed once the device starts and serves as the
// contract any command dispatcher must consult: names outside the
// descriptor are rejected, never executed.
package caps
