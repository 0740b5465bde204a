// Package block defines the block-device vocabulary shared by the SAN
// core and its transports: capacity reports, transfer requests, and the
// range errors both sides agree on.
//
// A transport reports capacity in raw blocks. The SAN core layers a
// block-size shift on top of this to expose coarser logical blocks
// (CD-ROM emulation); that translation lives in the san package, not here.
package block
