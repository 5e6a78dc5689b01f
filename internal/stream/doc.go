// Package stream implements the futures WebSocket client.
//
// A Client owns one connection at a time. After Connect it runs a ping loop
// and a read loop; inbound frames are decoded and dispatched sequentially to
// callbacks registered with On. Private channels require Login followed by a
// successful acknowledgement from the server. When the server drops the
// connection and auto-reconnect is enabled, the client redials at a fixed
// interval until it succeeds or Disconnect is called.
package stream
