// Package attgatt implements the server side of the Bluetooth Low Energy
// Attribute Protocol (ATT) and the Generic Attribute Profile (GATT) that
// layers on top of it.
//
// STATUS
//
// This package implements the ATT wire protocol, the GATT attribute
// database, and the connection event loop that ties them together. It does
// not implement GAP advertising, the peripheral/central role state machine,
// or the Security Manager Protocol; those are treated as a separate concern
// from the attribute server itself.
//
// SETUP
//
// The raw socket transport only runs on Linux, against an already-paired
// or already-connected L2CAP link; this package does not drive an HCI
// controller or advertise. Make sure the adapter is up and that something
// else (BlueZ, a pairing tool) has already established the link-layer
// connection before Server.Serve accepts it.
//
// USAGE
//
// A server is built from a function that constructs a fresh Registration
// per accepted connection (Client Characteristic Configuration state is
// per-client, so each peer needs its own Database):
//
//     newReg := func() *attgatt.Registration {
//         reg := attgatt.NewRegistration()
//         reg.AddPrimaryService(attgatt.UUID16(0x180F)) // Battery Service
//         reg.AddCharacteristicWithToken("battery-level", attgatt.UUID16(0x2A19),
//             []byte{100}, attgatt.CPRead|attgatt.CPNotify)
//         return reg
//     }
//
//     srv, err := attgatt.NewServer(newReg, attgatt.WithDeviceID(0),
//         attgatt.WithOnConnect(func(c *attgatt.Connection) {
//             go func() {
//                 for ev := range c.Events() {
//                     log.Printf("write: %v = % x", ev.Token, ev.Value)
//                 }
//             }()
//         }))
//     if err != nil {
//         log.Fatal(err)
//     }
//     log.Fatal(srv.Serve(context.Background()))
//
// Each accepted peer gets its own *Connection, running its own goroutine;
// Connection.Events() yields WriteEvents for tokened writes, and
// Connection.Notify/Indicate push value updates back to the peer.
//
// See the package tests for worked examples of the wire-level behavior,
// including Connections driven over the in-memory NewPipe transport.
package attgatt
