// Package eeprom provides byte-addressable durable storage in the shape of a
// microcontroller EEPROM: single bytes are read and written directly, and
// 32-bit words are composed from four consecutive bytes in a fixed
// little-endian order.
//
// Byte operations never fail at the call site. Backends that can hit I/O
// errors (FileStore) keep the first error sticky and report it through Err,
// so callers that must stay infallible can check it out of band.
package eeprom
