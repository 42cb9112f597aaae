// Package opengaze speaks the eye tracker control server line protocol.
//
// Server sends CRLF terminated frames that look like XML elements but are not
// well-formed XML, so they are only scanned for tag and attribute tokens:
//
//	<REC TIME="12.500" CNT="7" FPOGX="0.40" ... />
//	<ACK ID="ENABLE_SEND_DATA" STATE="1" />
//
// Client enables record fields with SET commands, no reply is awaited.
package opengaze
