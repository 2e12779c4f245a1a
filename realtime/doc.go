// Package realtime is the WebSocket side of the session authority: a
// gateway that upgrades authenticated connections and a registry that lets
// the engine force-close them.
//
// # Handshake
//
// Clients connect with `?token=<access>`. The token goes through the full
// stateful verification (session pointer, deletion flag, blacklist) but
// never the refresh path; a failed handshake is accepted and then closed
// with status 1008 and the reject reason as the close reason, one close per
// failure.
//
// # Session eviction
//
// [Registry] implements authgate.Evictor. When the engine invalidates a
// session, the registry looks up (userId, sessionId) and closes the socket
// with 1008 and the eviction reason. A second login for the same key closes
// the first connection; the new connection wins.
//
// # Frames
//
// Inbound frames are `{method, data}` JSON. Before dispatch the gateway
// re-checks the user's directory record: banned users get an error frame
// and no dispatch (their socket stays open), deleted users are closed.
// Business handling lives behind [MessageHandler]; this package owns only
// transport and session enforcement.
package realtime
